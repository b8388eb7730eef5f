package model

// VerdictKind tells whether a response carries the file or a page to render.
type VerdictKind int

const (
	VerdictAttachment VerdictKind = iota
	VerdictInterstitial
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictAttachment:
		return "attachment"
	case VerdictInterstitial:
		return "interstitial"
	default:
		return "unknown"
	}
}

// Verdict is derived from response headers only.
type Verdict struct {
	Kind        VerdictKind
	Disposition string // Content-Disposition as received
	ContentType string // Content-Type as received
}

// IsAttachment reports whether the response body is the file itself.
func (v Verdict) IsAttachment() bool {
	return v.Kind == VerdictAttachment
}

// Signal is what an interstitial page yields: either a ready-made URL or a
// confirmation token. At most one of the fields is set.
type Signal struct {
	DirectURL string
	Token     ConfirmToken
}

// HasURL reports whether the signal carries a direct download URL.
func (s Signal) HasURL() bool { return s.DirectURL != "" }

// HasToken reports whether the signal carries a confirm token.
func (s Signal) HasToken() bool { return s.Token != "" }
