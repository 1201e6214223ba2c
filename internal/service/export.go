package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/getnara/unstruct/internal/domain"
)

// BuildJSON renders the full task output as an indented JSON artifact.
func BuildJSON(output *domain.TaskOutput) ([]byte, error) {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}

// BuildCSV renders the task output as a CSV artifact. Columns follow
// the action declaration order, prefixed by an asset column. Extraction
// columns hold one row per asset; generation columns hold a single
// value. Shorter columns are padded with empty cells so every row has
// the full width.
func BuildCSV(output *domain.TaskOutput, actions []domain.Action) ([]byte, error) {
	header := []string{"asset"}
	for _, action := range actions {
		header = append(header, action.OutputColumnName)
	}

	// Row count is driven by the longest column.
	maxRows := 0
	var assetNames []string
	for _, action := range actions {
		if action.ActionType == domain.ActionTypeExtraction {
			entries := output.Extractions[action.OutputColumnName]
			if len(entries) > maxRows {
				maxRows = len(entries)
			}
			if assetNames == nil {
				for _, e := range entries {
					assetNames = append(assetNames, e.Asset)
				}
			}
		} else if maxRows < 1 {
			maxRows = 1
		}
	}

	records := make([][]string, 0, maxRows+1)
	records = append(records, header)

	for row := 0; row < maxRows; row++ {
		record := make([]string, 0, len(header))
		if row < len(assetNames) {
			record = append(record, assetNames[row])
		} else {
			record = append(record, "")
		}

		for _, action := range actions {
			record = append(record, cellValue(output, &action, row))
		}
		records = append(records, record)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(output *domain.TaskOutput, action *domain.Action, row int) string {
	switch action.ActionType {
	case domain.ActionTypeGeneration:
		if row == 0 {
			return output.Generations[action.OutputColumnName]
		}
		return ""
	default:
		entries := output.Extractions[action.OutputColumnName]
		if row >= len(entries) {
			return ""
		}
		data, err := json.Marshal(entries[row].Data)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
