package shortener

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultTrackingParams are query parameters stripped during canonicalization.
var DefaultTrackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"fbclid",
	"gclid",
	"ref",
	"ref_src",
}

var defaultCanonicalizer = NewCanonicalizer(DefaultTrackingParams...)

// Canonicalize normalizes raw using the default tracking parameter set.
func Canonicalize(raw string) (string, error) {
	return defaultCanonicalizer.Canonicalize(raw)
}

// Canonicalizer normalizes addresses into their canonical form.
// It is safe for concurrent use.
type Canonicalizer struct {
	tracking map[string]struct{}
}

// NewCanonicalizer creates a canonicalizer that strips the given query parameters.
// Parameter names are matched case-insensitively.
func NewCanonicalizer(trackingParams ...string) *Canonicalizer {
	tracking := make(map[string]struct{}, len(trackingParams))
	for _, p := range trackingParams {
		tracking[strings.ToLower(p)] = struct{}{}
	}

	return &Canonicalizer{tracking: tracking}
}

// Canonicalize normalizes an address:
//   - lowercases the scheme and host, leaving the path untouched
//   - drops the default port for http and https
//   - removes trailing slashes from the path (an empty path becomes "/")
//   - removes tracking query parameters, keeping the others in order
//
// It returns ErrInvalidAddress when raw has no scheme or host.
func (c *Canonicalizer) Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	if u.Scheme == "" || u.Opaque != "" || u.Host == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q must be absolute with a host", ErrInvalidAddress, raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	switch {
	case u.Scheme == "http" && u.Port() == "80":
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && u.Port() == "443":
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if err = trimPath(u); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	u.RawQuery = c.filterQuery(u.RawQuery)
	u.ForceQuery = false

	return u.String(), nil
}

func trimPath(u *url.URL) error {
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	if escaped == "" {
		escaped = "/"
	}

	path, err := url.PathUnescape(escaped)
	if err != nil {
		return err
	}

	u.Path = path
	u.RawPath = escaped

	return nil
}

// filterQuery drops tracking pairs from a raw query without re-encoding the rest.
func (c *Canonicalizer) filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]

	for _, pair := range pairs {
		if pair == "" {
			continue
		}

		name, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}

		if _, ok := c.tracking[strings.ToLower(name)]; ok {
			continue
		}

		kept = append(kept, pair)
	}

	return strings.Join(kept, "&")
}
