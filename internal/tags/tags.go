// Package tags canonicalizes the tag representations used across the local
// store and the remote bookmark service.
//
// Locally, tags are stored as a comma-joined string on each link row. The
// remote service is less disciplined: depending on the endpoint and account
// age, a link's tag field arrives as a JSON array of strings, a JSON array
// of objects (with slug/name/title fields), or a single pre-joined string.
// Normalize accepts all of these and produces the canonical local form.
package tags

import (
	"encoding/json"
	"strings"
)

// Normalize converts a raw remote tag payload into the canonical
// comma-joined tag string.
//
// Accepted shapes:
//   - JSON string: passed through as-is ("a,b,c")
//   - JSON array of strings: ["a", "b"] -> "a,b"
//   - JSON array of objects: first non-empty of slug, name, title per item
//
// Items that are empty or of an unrecognized type are dropped. Order is
// preserved from the input. An empty or null payload yields "".
func Normalize(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	// Already-joined string form.
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return strings.TrimSpace(joined)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}

	var out []string
	for _, item := range items {
		if name := normalizeItem(item); name != "" {
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}

// normalizeItem extracts a tag name from a single array element.
// Fallback order for object items: slug, then name, then title.
func normalizeItem(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Slug  string `json:"slug"`
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return ""
	}
	for _, candidate := range []string{obj.Slug, obj.Name, obj.Title} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return ""
}

// Split breaks a canonical comma-joined tag string into individual tags,
// dropping empties. Split("") returns nil.
func Split(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Join is the inverse of Split.
func Join(names []string) string {
	var out []string
	for _, n := range names {
		if t := strings.TrimSpace(n); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}

// Slugify derives a tag slug: lowercase, with every run of
// non-alphanumeric characters collapsed to a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
