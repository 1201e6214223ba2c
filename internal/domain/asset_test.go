package domain

import "testing"

func TestFileTypeFromName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		expected FileType
	}{
		{"pdf", "report.pdf", FileTypePDF},
		{"uppercase extension", "REPORT.PDF", FileTypePDF},
		{"docx maps to doc", "contract.docx", FileTypeDOC},
		{"txt", "notes.txt", FileTypeTXT},
		{"jpeg", "photo.jpeg", FileTypeJPEG},
		{"jpg", "photo.jpg", FileTypeJPG},
		{"png", "diagram.png", FileTypePNG},
		{"mp4", "clip.mp4", FileTypeMP4},
		{"mp3", "episode.mp3", FileTypeMP3},
		{"unknown extension", "archive.zip", FileTypeOther},
		{"no extension", "README", FileTypeOther},
		{"dotfile", ".env", FileTypeOther},
		{"multiple dots", "backup.2024.pdf", FileTypePDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileTypeFromName(tt.fileName); got != tt.expected {
				t.Errorf("FileTypeFromName(%q) = %v, want %v", tt.fileName, got, tt.expected)
			}
		})
	}
}

func TestFileTypeClassification(t *testing.T) {
	docs := []FileType{FileTypePDF, FileTypeDOC, FileTypeTXT}
	for _, ft := range docs {
		if !ft.IsDocument() {
			t.Errorf("expected %v to be a document", ft)
		}
		if ft.IsMedia() {
			t.Errorf("expected %v not to be media", ft)
		}
	}

	media := []FileType{FileTypeMP4, FileTypeMP3}
	for _, ft := range media {
		if !ft.IsMedia() {
			t.Errorf("expected %v to be media", ft)
		}
		if ft.IsDocument() {
			t.Errorf("expected %v not to be a document", ft)
		}
	}

	if FileTypeJPG.IsDocument() || FileTypeJPG.IsMedia() {
		t.Error("images should be neither documents nor metered media")
	}
}

func TestFieldDataIsError(t *testing.T) {
	if (FieldData{"invoice_total": 12.5}).IsError() {
		t.Error("value data should not report as error")
	}
	if !ErrorData("boom").IsError() {
		t.Error("error data should report as error")
	}
	if ErrorData("boom")["error"] != "boom" {
		t.Error("error message should survive")
	}
}

func TestTaskActionPartition(t *testing.T) {
	task := &Task{
		Actions: []Action{
			{ID: "a", OutputColumnName: "total", ActionType: ActionTypeExtraction},
			{ID: "b", OutputColumnName: "summary", ActionType: ActionTypeGeneration},
			{ID: "c", OutputColumnName: "vendor", ActionType: ActionTypeExtraction},
		},
	}

	extractions := task.ExtractionActions()
	if len(extractions) != 2 || extractions[0].ID != "a" || extractions[1].ID != "c" {
		t.Errorf("unexpected extraction partition: %+v", extractions)
	}

	generations := task.GenerationActions()
	if len(generations) != 1 || generations[0].ID != "b" {
		t.Errorf("unexpected generation partition: %+v", generations)
	}
}
