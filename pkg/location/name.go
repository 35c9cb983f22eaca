package location

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName converts a user supplied name into its storage key:
// lower case with spaces replaced by underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// ValidateName normalizes name and rejects empty results.
func ValidateName(name string) (string, error) {
	key := NormalizeName(name)
	if key == "" {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return key, nil
}

// DisplayName renders a storage key for humans.
func DisplayName(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
