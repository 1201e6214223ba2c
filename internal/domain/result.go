package domain

// ErrInvalidJSONResponse is the sentinel stored under a field's "error"
// key when the model's output cannot be parsed as JSON. Callers depend
// on this exact string.
const ErrInvalidJSONResponse = "Invalid JSON response"

// FieldData is the parsed model response for one (action, asset) pair.
// A well-formed response contains the field value plus "<field>_confidence"
// and "<field>_reference" keys; a malformed one contains only an "error" key.
type FieldData map[string]interface{}

// ErrorData builds the explicit error payload recorded for a failed pair.
func ErrorData(msg string) FieldData {
	return FieldData{"error": msg}
}

// IsError reports whether the data is an error sentinel rather than an
// extracted value.
func (d FieldData) IsError() bool {
	_, ok := d["error"]
	return ok
}

// ExtractionEntry is one row of an extraction column: the asset it came
// from, the parsed (or error) data, and the asset's source URL.
type ExtractionEntry struct {
	Asset  string    `json:"asset"`
	Data   FieldData `json:"data"`
	Source string    `json:"source"`
}

// TaskOutput is the structured result of processing one task. Extractions
// map output column names to per-asset entry lists in asset-membership
// order; Generations map output column names to generated text. Error is
// set only when the whole run was aborted by an unexpected failure.
type TaskOutput struct {
	Extractions map[string][]ExtractionEntry `json:"extractions,omitempty"`
	Generations map[string]string            `json:"generations,omitempty"`
	Error       string                       `json:"error,omitempty"`
}
