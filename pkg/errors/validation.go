package errors

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidatePath validates a file path given on the command line.
// It prevents control characters and overly long paths.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateUUID checks that s is a canonical RFC 4122 uuid string.
// Entity uuids minted by the chart model always pass; uuids coming from other
// backends are only required to be non-empty, so this check is opt-in.
func ValidateUUID(s string) error {
	if s == "" {
		return New(ErrCodeInvalidInput, "uuid cannot be empty").WithField("uuid")
	}
	if _, err := uuid.Parse(s); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "malformed uuid %q", s).WithField("uuid")
	}
	return nil
}

// ValidateFormat checks that format is one of the allowed values (case-insensitive).
func ValidateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(format, a) {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
}
