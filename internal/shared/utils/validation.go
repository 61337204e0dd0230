package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits (in bytes)
const (
	MaxPayloadSize = 64 * 1024 // 64KB - static defaults and fallback payloads
)

// String length limits
const (
	MaxNameLength = 128
	MaxKeyLength  = 512
)

// Regular expressions for validation
var (
	// SafeNamePattern allows alphanumeric, hyphens, underscores
	SafeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// KeyPattern additionally allows colons and dots (namespaced digest format)
	KeyPattern = regexp.MustCompile(`^[a-zA-Z0-9:._-]+$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateDependencyName validates a dependency name
func ValidateDependencyName(name string, required bool) error {
	if err := ValidateString(name, "dependency name", 1, MaxNameLength, required); err != nil {
		return err
	}

	if name != "" && !SafeNamePattern.MatchString(name) {
		return fmt.Errorf("dependency name contains invalid characters (only alphanumeric, hyphens, and underscores allowed)")
	}

	return nil
}

// ValidateKey validates a deduplication or cache key
func ValidateKey(key, fieldName string, required bool) error {
	if err := ValidateString(key, fieldName, 1, MaxKeyLength, required); err != nil {
		return err
	}

	if key != "" && !KeyPattern.MatchString(key) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, colons, dots, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}

// ValidatePayload checks that a JSON-serializable payload stays within
// the configured size limit
func ValidatePayload(v interface{}, fieldName string) error {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", fieldName, err)
	}

	if len(data) > MaxPayloadSize {
		return fmt.Errorf("%s size %d bytes exceeds maximum %d bytes", fieldName, len(data), MaxPayloadSize)
	}

	return nil
}
