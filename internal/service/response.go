package service

import (
	"encoding/json"
	"strings"

	"github.com/getnara/unstruct/internal/domain"
)

// CleanModelJSON strips the markdown code fences models wrap JSON in
// despite instructions. Handles both ```json and bare ``` fences.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// ParseFieldData parses a model response into field data. A response
// that is not valid JSON collapses to the invalid-JSON error record
// instead of failing the extraction.
func ParseFieldData(raw string) domain.FieldData {
	cleaned := CleanModelJSON(raw)

	var data domain.FieldData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return domain.ErrorData(domain.ErrInvalidJSONResponse)
	}
	if data == nil {
		return domain.ErrorData(domain.ErrInvalidJSONResponse)
	}
	return data
}
