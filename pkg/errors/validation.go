package errors

import (
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could corrupt identity keys or be used for injection.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path traversal sequences (.., //, backslash)
//   - Maximum length of 256 characters
//
// Ecosystem-specific validation (npm scoping rules, PEP 508) is the concern
// of whatever built the graph, not of this engine.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidNode, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidNode, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidNode, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidNode, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateVersion validates a resolved version string. Versions need not be
// semver ("unknown" is a legal resolved version), but they must be non-empty
// and printable so that name@version identity keys stay well-formed.
func ValidateVersion(version string) error {
	if version == "" {
		return New(ErrCodeInvalidNode, "package version cannot be empty")
	}

	if len(version) > 128 {
		return New(ErrCodeInvalidNode, "package version too long (max 128 characters)")
	}

	for _, r := range version {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidNode, "package version contains invalid control characters")
		}
	}

	return nil
}

// ValidateScanID validates a scan document identifier.
// Scan IDs are UUIDs or short opaque tokens; anything with path separators
// or whitespace is rejected before it can reach a storage query.
func ValidateScanID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "scan ID cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "scan ID too long (max 64 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '/' || r == '\\' {
			return New(ErrCodeInvalidInput, "scan ID contains invalid characters")
		}
	}

	return nil
}
