package dispatch

import (
	"net/url"
	"strings"

	"github.com/cieldm/ciel/internal/domain"
)

// IsMagnet reports whether the input is a magnet-style identifier.
func IsMagnet(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "magnet:")
}

// ValidateURL checks that the input is a syntactically valid absolute
// http(s) URL or a magnet link. It runs before any engine call so malformed
// input never costs a round trip.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ErrInvalidURL
	}
	if IsMagnet(raw) {
		// Magnets must at least carry an exact-topic parameter.
		if !strings.Contains(raw, "xt=") {
			return domain.ErrInvalidURL
		}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return domain.ErrInvalidURL
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.ErrInvalidURL
	}
	return nil
}
