package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxNodeIDLength bounds node identifiers accepted from documents and requests.
const MaxNodeIDLength = 256

// ValidateNodeID validates a caller-supplied node identifier.
//
// The rules are deliberately small:
//   - No empty identifiers
//   - No control characters (they break log and terminal output)
//   - Maximum length of [MaxNodeIDLength] bytes
//
// Any printable string is otherwise accepted, including spaces and slashes.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > MaxNodeIDLength {
		return New(ErrCodeInvalidInput, "node id too long (max %d characters)", MaxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id contains control characters")
		}
	}

	return nil
}

// DocumentFormat returns the graph document format implied by a filename:
// "json" for .json and "yaml" for .yaml or .yml (case-insensitive).
func DocumentFormat(filename string) (string, error) {
	if filename == "" {
		return "", New(ErrCodeInvalidInput, "graph filename cannot be empty")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", New(ErrCodeInvalidFormat, "unsupported graph file %q (want .json, .yaml or .yml)", filepath.Base(filename))
	}
}
