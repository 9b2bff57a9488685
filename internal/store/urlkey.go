package store

import (
	"fmt"
	"net/url"
	"strings"
)

// URLKey derives the canonical comparison key for a URL.
//
// Both the duplicate check on local link creation and the pull-merge upsert
// match on this key, so scheme case, a leading "www.", a trailing slash, and
// fragments never produce duplicate rows. The original URL text is stored
// unmodified alongside the key.
func URLKey(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("malformed url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q must include scheme and host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimRight(u.EscapedPath(), "/")

	key := scheme + "://" + host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	// Fragments are client-side only; dropped from the key.
	return key, nil
}
