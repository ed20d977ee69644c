package errors

import (
	"math"
	"net/url"
	"strings"
	"unicode"
)

// MaxObjectKeyLength is the longest object key accepted by the storage bucket.
const MaxObjectKeyLength = 255

// MaxSearchTermLength bounds gallery search input.
const MaxSearchTermLength = 128

// ValidateObjectKey checks an upload object key. Keys are relative,
// at most MaxObjectKeyLength bytes, and free of control characters,
// ".." and backslashes.
func ValidateObjectKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidObjectKey, "object key cannot be empty")
	}
	if len(key) > MaxObjectKeyLength {
		return New(ErrCodeInvalidObjectKey, "object key too long (max %d characters)", MaxObjectKeyLength)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidObjectKey, "object key contains invalid control characters")
		}
	}
	if strings.HasPrefix(key, "/") {
		return New(ErrCodeInvalidObjectKey, "object key must be relative (cannot start with /)")
	}
	for _, pattern := range []string{"..", "\\"} {
		if strings.Contains(key, pattern) {
			return New(ErrCodeInvalidObjectKey, "object key contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// ValidateURL checks an API base URL: absolute, http or https, with a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https, got %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", rawURL)
	}
	return nil
}

// ValidateSearchTerm rejects search input that is too long or contains
// control characters. The empty term is valid and matches everything.
func ValidateSearchTerm(term string) error {
	if len(term) > MaxSearchTermLength {
		return New(ErrCodeInvalidInput, "search term too long (max %d characters)", MaxSearchTermLength)
	}
	for _, r := range term {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "search term contains invalid control characters")
		}
	}
	return nil
}

// ValidateContainerWidth checks a container width supplied by a caller.
// The layout engine itself tolerates unmeasurable widths; request
// boundaries reject them so clients learn about the mistake.
func ValidateContainerWidth(width float64) error {
	if math.IsNaN(width) || math.IsInf(width, 0) || width <= 0 {
		return New(ErrCodeInvalidWidth, "container width must be a positive number, got %v", width)
	}
	return nil
}
