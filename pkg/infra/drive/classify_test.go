package drive_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gdfetch/pkg/infra/drive"
	"github.com/m-mizutani/gt"
)

type trackingBody struct {
	io.Reader
	read bool
}

func (b *trackingBody) Read(p []byte) (int, error) {
	b.read = true
	return b.Reader.Read(p)
}

func (b *trackingBody) Close() error { return nil }

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		contentType string
		want        model.VerdictKind
	}{
		{
			name:        "attachment with html content type",
			disposition: `attachment; filename="model.zip"`,
			contentType: "text/html; charset=utf-8",
			want:        model.VerdictAttachment,
		},
		{
			name:        "attachment is case insensitive",
			disposition: `ATTACHMENT; filename=x.bin`,
			want:        model.VerdictAttachment,
		},
		{
			name:        "html page",
			contentType: "text/html; charset=utf-8",
			want:        model.VerdictInterstitial,
		},
		{
			name:        "html content type upper case",
			contentType: "Text/HTML",
			want:        model.VerdictInterstitial,
		},
		{
			name:        "octet stream without disposition",
			contentType: "application/octet-stream",
			want:        model.VerdictAttachment,
		},
		{
			name: "no headers at all",
			want: model.VerdictAttachment,
		},
		{
			name:        "inline disposition with html",
			disposition: "inline",
			contentType: "text/html",
			want:        model.VerdictInterstitial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &trackingBody{Reader: strings.NewReader("payload")}
			resp := &http.Response{Header: http.Header{}, Body: body}
			if tt.disposition != "" {
				resp.Header.Set("Content-Disposition", tt.disposition)
			}
			if tt.contentType != "" {
				resp.Header.Set("Content-Type", tt.contentType)
			}

			v := drive.Classify(resp)
			gt.Value(t, v.Kind).Equal(tt.want)
			gt.Value(t, body.read).Equal(false)
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{
			name:        "encoded form preferred",
			disposition: `attachment; filename="fallback.zip"; filename*=UTF-8''Task%20500%20model.zip`,
			want:        "Task 500 model.zip",
		},
		{
			name:        "plain quoted",
			disposition: `attachment; filename="nnUNet_binary.zip"`,
			want:        "nnUNet_binary.zip",
		},
		{
			name:        "plain unquoted",
			disposition: `attachment; filename=weights.tar.gz; size=10`,
			want:        "weights.tar.gz",
		},
		{
			name:        "no disposition",
			disposition: "",
			want:        "binary_model.zip",
		},
		{
			name:        "directory components stripped",
			disposition: `attachment; filename="../../etc/passwd"`,
			want:        "passwd",
		},
		{
			name:        "malformed escape kept verbatim",
			disposition: `attachment; filename*=UTF-8''%zz.zip`,
			want:        "%zz.zip",
		},
		{
			name:        "valid escapes decoded next to malformed ones",
			disposition: `attachment; filename*=UTF-8''a%20b%zz.zip`,
			want:        "a b%zz.zip",
		},
		{
			name:        "plain form not taken from encoded parameter",
			disposition: `attachment; filename*=UTF-8''..`,
			want:        "binary_model.zip",
		},
		{
			name:        "dot dot only falls back",
			disposition: `attachment; filename=".."`,
			want:        "binary_model.zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.disposition != "" {
				resp.Header.Set("Content-Disposition", tt.disposition)
			}
			gt.Value(t, drive.Filename(resp, "binary_model.zip")).Equal(tt.want)
		})
	}
}

func TestSeedAndConfirmURLs(t *testing.T) {
	seeds := drive.SeedURLs("1p4TYVPz")
	gt.Number(t, len(seeds)).Equal(2)
	gt.Value(t, seeds[0]).Equal("https://drive.google.com/uc?export=download&id=1p4TYVPz")
	gt.Value(t, seeds[1]).Equal("https://drive.usercontent.google.com/download?id=1p4TYVPz&export=download")

	confirms := drive.ConfirmURLs(seeds, model.ConfirmToken("t_1"))
	gt.Number(t, len(confirms)).Equal(2)
	gt.Value(t, confirms[0]).Equal("https://drive.google.com/uc?confirm=t_1&export=download&id=1p4TYVPz")
	gt.Value(t, confirms[1]).Equal("https://drive.usercontent.google.com/download?confirm=t_1&export=download&id=1p4TYVPz")
}
