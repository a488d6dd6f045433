package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// cardNameAllowed matches every character that may appear in a stored card
// name. Anything outside the allow-list is replaced, never passed through,
// so uploaded filenames can not escape the cards directory.
var cardNameAllowed = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeCardName normalizes an uploaded filename into a card name: the
// path and the .txt extension are stripped, and characters outside the
// allow-list become underscores. An empty result means the name was
// unusable and the upload must be rejected.
func SanitizeCardName(raw string) string {
	name := filepath.Base(strings.TrimSpace(raw))
	name = strings.TrimSuffix(name, ".txt")
	name = cardNameAllowed.ReplaceAllString(name, "_")
	// A name of only replacement characters or dots is not addressable.
	if strings.Trim(name, "_.") == "" {
		return ""
	}
	return name
}
