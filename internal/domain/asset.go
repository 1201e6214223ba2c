package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// FileType is the declared content type of an asset. It drives
// extraction-handler selection, so every processable asset must carry
// one of the known values; FileTypeOther is accepted but unhandled.
type FileType string

const (
	FileTypePDF   FileType = "PDF"
	FileTypeDOC   FileType = "DOC"
	FileTypeTXT   FileType = "TXT"
	FileTypeJPEG  FileType = "JPEG"
	FileTypeJPG   FileType = "JPG"
	FileTypePNG   FileType = "PNG"
	FileTypeMP4   FileType = "MP4"
	FileTypeMP3   FileType = "MP3"
	FileTypeOther FileType = "OTHER"
)

// IsDocument reports whether the file type counts as a document for
// usage metering purposes.
func (t FileType) IsDocument() bool {
	switch t {
	case FileTypePDF, FileTypeDOC, FileTypeTXT:
		return true
	}
	return false
}

// IsMedia reports whether the file type is metered by size (video/audio).
func (t FileType) IsMedia() bool {
	return t == FileTypeMP4 || t == FileTypeMP3
}

// FileTypeFromName guesses a FileType from a file name extension.
// Unknown extensions map to FileTypeOther.
func FileTypeFromName(name string) FileType {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return FileTypeOther
	}
	switch strings.ToUpper(name[idx+1:]) {
	case "PDF":
		return FileTypePDF
	case "DOC", "DOCX":
		return FileTypeDOC
	case "TXT":
		return FileTypeTXT
	case "JPEG":
		return FileTypeJPEG
	case "JPG":
		return FileTypeJPG
	case "PNG":
		return FileTypePNG
	case "MP4":
		return FileTypeMP4
	case "MP3":
		return FileTypeMP3
	}
	return FileTypeOther
}

// UploadSource identifies where an asset's bytes live.
type UploadSource string

const (
	SourceUpload      UploadSource = "UPLOAD"
	SourceGoogleDrive UploadSource = "GOOGLE_DRIVE"
	SourceDropbox     UploadSource = "DROPBOX"
	SourceAWSS3       UploadSource = "AWS_S3"
)

// Credentials is a custom type for storing a source-specific credential
// blob as JSON in the database.
type Credentials map[string]string

// Value implements the driver.Valuer interface for database serialization.
func (c Credentials) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (c *Credentials) Scan(value interface{}) error {
	if value == nil {
		*c = Credentials{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Credentials")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}

// Asset represents one ingested file. Assets are immutable after
// creation except for soft deletion, and may be shared by many tasks.
type Asset struct {
	ID           string       `gorm:"type:text;primaryKey" json:"id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description,omitempty"`
	ProjectID    string       `gorm:"type:text;not null;index" json:"project_id"`
	URL          string       `gorm:"type:text" json:"url"`
	UploadSource UploadSource `gorm:"type:text;not null" json:"upload_source"`
	FileType     FileType     `gorm:"type:text;default:OTHER" json:"file_type"`

	// Source-specific locators. Only the fields matching UploadSource
	// are populated.
	StorageKey  string `gorm:"type:text" json:"storage_key,omitempty"`
	Bucket      string `gorm:"type:text" json:"bucket,omitempty"`
	ObjectKey   string `gorm:"type:text" json:"object_key,omitempty"`
	DriveFileID string `gorm:"type:text" json:"drive_file_id,omitempty"`
	DropboxPath string `gorm:"type:text" json:"dropbox_path,omitempty"`

	Credentials Credentials `gorm:"type:text" json:"-"`
	FileSize    int64       `json:"file_size"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name for Asset.
func (Asset) TableName() string {
	return "assets"
}
