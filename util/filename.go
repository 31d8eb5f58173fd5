package util

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrUnsafeFilename = errors.New("not a safe filename")
)

// SanitizeTitle reduces a media title to characters safe in a filename:
// letters, digits, spaces, hyphens and underscores. Everything else is
// dropped, and surrounding whitespace trimmed.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SafeBaseName validates a client-supplied filename for serving from the
// download directory: it must be a bare name with no path separators, no
// parent references, and not empty once dots are removed.
func SafeBaseName(name string) (string, error) {
	if name == "" {
		return "", ErrUnsafeFilename
	}
	if strings.ContainsAny(name, "/\\") {
		return "", ErrUnsafeFilename
	}
	if strings.ReplaceAll(name, ".", "") == "" {
		return "", ErrUnsafeFilename
	}
	return name, nil
}
