package service

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/getnara/unstruct/internal/domain"
)

func sampleOutput() *domain.TaskOutput {
	return &domain.TaskOutput{
		Extractions: map[string][]domain.ExtractionEntry{
			"total": {
				{Asset: "a.pdf", Data: domain.FieldData{"total": 10.0}, Source: "UPLOAD"},
				{Asset: "b.pdf", Data: domain.ErrorData("object not found"), Source: "AWS_S3"},
			},
		},
		Generations: map[string]string{
			"summary": "Two invoices.",
		},
	}
}

func sampleActions() []domain.Action {
	return []domain.Action{
		{OutputColumnName: "total", ActionType: domain.ActionTypeExtraction},
		{OutputColumnName: "summary", ActionType: domain.ActionTypeGeneration},
	}
}

func TestBuildCSVPadsColumns(t *testing.T) {
	data, err := BuildCSV(sampleOutput(), sampleActions())
	if err != nil {
		t.Fatalf("BuildCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV does not parse: %v", err)
	}

	// Header plus one row per asset.
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	header := records[0]
	if header[0] != "asset" || header[1] != "total" || header[2] != "summary" {
		t.Errorf("unexpected header: %v", header)
	}

	// Every row has full width.
	for i, rec := range records {
		if len(rec) != 3 {
			t.Errorf("row %d has width %d, want 3", i, len(rec))
		}
	}

	if records[1][0] != "a.pdf" {
		t.Errorf("expected asset name in first column, got %q", records[1][0])
	}
	// Generation value appears once, second row padded empty.
	if records[1][2] != "Two invoices." {
		t.Errorf("expected generation value in first data row, got %q", records[1][2])
	}
	if records[2][2] != "" {
		t.Errorf("expected padding cell, got %q", records[2][2])
	}

	// Extraction cells hold the field data as JSON.
	var cell map[string]interface{}
	if err := json.Unmarshal([]byte(records[2][1]), &cell); err != nil {
		t.Fatalf("extraction cell is not JSON: %v", err)
	}
	if cell["error"] != "object not found" {
		t.Errorf("error entry should be exported verbatim, got %v", cell)
	}
}

func TestBuildCSVGenerationOnly(t *testing.T) {
	output := &domain.TaskOutput{
		Generations: map[string]string{"poem": "roses"},
	}
	actions := []domain.Action{{OutputColumnName: "poem", ActionType: domain.ActionTypeGeneration}}

	data, err := BuildCSV(output, actions)
	if err != nil {
		t.Fatalf("BuildCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV does not parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d records", len(records))
	}
	if records[1][1] != "roses" {
		t.Errorf("unexpected generation cell: %q", records[1][1])
	}
}

func TestBuildJSONRoundTrip(t *testing.T) {
	data, err := BuildJSON(sampleOutput())
	if err != nil {
		t.Fatalf("BuildJSON failed: %v", err)
	}

	var decoded domain.TaskOutput
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact does not parse: %v", err)
	}
	if len(decoded.Extractions["total"]) != 2 {
		t.Errorf("expected 2 extraction entries, got %d", len(decoded.Extractions["total"]))
	}
	if decoded.Generations["summary"] != "Two invoices." {
		t.Errorf("unexpected generation: %q", decoded.Generations["summary"])
	}
}
