package content

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tracking query parameters stripped during URL canonicalization.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"igshid":   true,
	"mc_cid":   true,
	"mc_eid":   true,
	"ref":      true,
	"ref_src":  true,
	"si":       true,
	"source":   true,
	"feature":  true,
}

// CanonicalID produces the globally unique identifier for an external item.
// URLs are canonicalized; synthetic identifiers (notes://, reminders://) pass
// through untouched. Inputs that do not parse as URLs are returned as-is so
// that discovery never fails at this layer.
func CanonicalID(raw string) string {
	if strings.HasPrefix(raw, "notes://") || strings.HasPrefix(raw, "reminders://") {
		return raw
	}
	return CanonicalURL(raw)
}

// CanonicalURL normalizes a URL: lower-cases scheme and host, strips tracking
// query parameters, the fragment and any trailing slash, and resolves the
// short and embedded YouTube forms to the canonical watch?v= form.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSpace(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if vid := YouTubeVideoID(u); vid != "" {
		return "https://www.youtube.com/watch?v=" + vid
	}

	q := u.Query()
	for param := range q {
		if trackingParams[param] || strings.HasPrefix(param, "utm_") {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}

// YouTubeVideoID extracts the 11-character video identifier from any of the
// common YouTube URL shapes (watch?v=, youtu.be/, /shorts/, /embed/).
// Returns "" when u is not a recognizable YouTube video URL.
func YouTubeVideoID(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	switch host {
	case "youtu.be":
		return strings.TrimPrefix(strings.Trim(u.Path, "/"), "v/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				rest := strings.TrimPrefix(u.Path, prefix)
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				return rest
			}
		}
	}

	return ""
}

// Hash computes the content hash over an ordered list of normalized fields.
// Each field is NFC-normalized, lower-cased and whitespace-collapsed before
// hashing, so formatting-only changes do not register as content changes.
// Empty fields hash as empty; absence of content is not an error here.
func Hash(fields ...string) string {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = normalizeText(f)
	}

	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}

func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
