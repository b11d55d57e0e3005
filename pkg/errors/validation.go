package errors

import (
	"strings"
	"unicode"
)

// ValidatePackageID validates a package identifier for safety and correctness.
// It rejects blank identifiers and names that could be used for path traversal,
// since package identifiers become directory names under the cache root.
//
// The validation rules are intentionally conservative:
//   - No empty or whitespace-only identifiers
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No path separators
//   - Maximum length of 256 characters
//
// Feed-specific naming rules are enforced by the feed itself; this gate only
// guarantees the identifier is safe to use before any I/O happens.
func ValidatePackageID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidPackage, "package id cannot be blank")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidPackage, "package id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package id contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidPackage, "package id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateSourceURL validates a package feed URL.
// Only http and https schemes are accepted.
func ValidateSourceURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidSource, "source URL cannot be empty")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return New(ErrCodeInvalidSource, "source URL must use http or https: %s", raw)
	}
	return nil
}
