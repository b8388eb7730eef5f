package drive

import (
	"net/url"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

const (
	ucEndpoint          = "https://drive.google.com/uc"
	usercontentEndpoint = "https://drive.usercontent.google.com/download"
)

// SeedURLs returns the two known endpoints serving fileID.
func SeedURLs(fileID string) []string {
	return []string{
		ucEndpoint + "?export=download&id=" + url.QueryEscape(fileID),
		usercontentEndpoint + "?id=" + url.QueryEscape(fileID) + "&export=download",
	}
}

// ConfirmURLs derives one confirmation URL per seed by adding the token to
// the seed's query. Seeds that fail to parse are skipped.
func ConfirmURLs(seeds []string, token model.ConfirmToken) []string {
	out := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		u, err := url.Parse(seed)
		if err != nil {
			continue
		}
		q := u.Query()
		q.Set("confirm", string(token))
		u.RawQuery = q.Encode()
		out = append(out, u.String())
	}
	return out
}
