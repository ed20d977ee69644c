package gallery

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/masonry/pkg/errors"
)

// SanitizeObjectKey normalizes an upload name into a bucket-safe key:
// trimmed, lowercased, with every rune outside [a-z0-9-._/] replaced by '_'.
func SanitizeObjectKey(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", errors.New(errors.ErrCodeInvalidObjectKey, "object key cannot be empty")
	}
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '.', r == '_', r == '/':
			return r
		default:
			return '_'
		}
	}, name)
	return key, errors.ValidateObjectKey(key)
}

// UniqueObjectKey returns "<uuid>-<sanitized base name>", a key that never
// collides with an existing upload.
func UniqueObjectKey(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		return "", errors.New(errors.ErrCodeInvalidObjectKey, "no file name in %q", name)
	}
	key, err := SanitizeObjectKey(base)
	if err != nil {
		return "", err
	}
	return uuid.NewString() + "-" + key, nil
}
