package application

import (
	"fmt"
	"strings"

	"marginalia/internal/domain"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "contentID" -> "content ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"contentID":   "content ID",
		"contentIDs":  "content IDs",
		"newName":     "new name",
		"newLocation": "new location",
		"queue":       "queue",
		"tag":         "tag",
		"root":        "root",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}
	return fieldName
}

// ValidateContentID parses an identifier given by a collaborator
func ValidateContentID(fieldName, raw string) (domain.ContentID, error) {
	if err := ValidateRequired(fieldName, raw); err != nil {
		return "", err
	}
	id, err := domain.ParseContentID(raw)
	if err != nil {
		return "", &ValidationError{Field: fieldName, Message: err.Error()}
	}
	return id, nil
}

// ValidateContentIDs parses a batch of identifiers; the batch must not be empty
func ValidateContentIDs(fieldName string, raw []string) ([]domain.ContentID, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("at least one %s is required", strings.TrimSuffix(formatFieldName(fieldName), "s")),
		}
	}
	ids := make([]domain.ContentID, 0, len(raw))
	seen := make(map[domain.ContentID]bool, len(raw))
	for _, r := range raw {
		id, err := ValidateContentID(fieldName, r)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ValidateFileName checks that a new name is a bare filename
func ValidateFileName(fieldName, name string) error {
	if err := domain.ValidateFileName(name); err != nil {
		return &ValidationError{Field: fieldName, Message: err.Error()}
	}
	return nil
}

// ValidateLocation checks that a directory is absolute and clean
func ValidateLocation(fieldName, dir string) error {
	if err := domain.ValidateLocation(dir); err != nil {
		return &ValidationError{Field: fieldName, Message: err.Error()}
	}
	return nil
}

// NormalizeTag trims and lowercases a tag, rejecting empty ones
func NormalizeTag(tag string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return "", &ValidationError{Field: "tag", Message: "tag is required"}
	}
	if strings.ContainsAny(t, ",\n\t") {
		return "", &ValidationError{Field: "tag", Message: fmt.Sprintf("tag %q contains a separator", tag)}
	}
	return t, nil
}
