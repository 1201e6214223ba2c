package service

import (
	"testing"

	"github.com/getnara/unstruct/internal/domain"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "bare json",
			raw:      `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "json fence with label",
			raw:      "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "bare fence",
			raw:      "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "uppercase label",
			raw:      "```JSON\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounding whitespace",
			raw:      "  \n```json\n{\"a\": 1}\n```  \n",
			expected: `{"a": 1}`,
		},
		{
			name:     "fence without closing",
			raw:      "```json\n{\"a\": 1}",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanModelJSON(tt.raw); got != tt.expected {
				t.Errorf("CleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestParseFieldData(t *testing.T) {
	data := ParseFieldData("```json\n{\"total\": 42.5, \"total_confidence\": 0.93, \"total_reference\": \"page 2\"}\n```")
	if data.IsError() {
		t.Fatalf("expected parsed data, got error: %v", data)
	}
	if data["total"] != 42.5 {
		t.Errorf("expected total 42.5, got %v", data["total"])
	}
	if data["total_confidence"] != 0.93 {
		t.Errorf("expected confidence 0.93, got %v", data["total_confidence"])
	}
	if data["total_reference"] != "page 2" {
		t.Errorf("expected reference, got %v", data["total_reference"])
	}
}

func TestParseFieldDataInvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "The total is 42.5"},
		{"empty", ""},
		{"truncated", `{"total": 42.`},
		{"json null", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := ParseFieldData(tt.raw)
			if !data.IsError() {
				t.Fatalf("expected error data, got %v", data)
			}
			if data["error"] != domain.ErrInvalidJSONResponse {
				t.Errorf("expected sentinel %q, got %v", domain.ErrInvalidJSONResponse, data["error"])
			}
		})
	}
}
