package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/getnara/unstruct/internal/domain"
	"github.com/getnara/unstruct/internal/logger"
)

type fakeUploadStorage struct {
	objects   map[string][]byte
	downloads int
	existsErr error
}

func (f *fakeUploadStorage) Upload(context.Context, string, io.Reader, int64, string) error {
	return errors.New("not implemented")
}

func (f *fakeUploadStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.downloads++
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeUploadStorage) PresignedGetURL(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeUploadStorage) Delete(context.Context, string) error { return nil }

func (f *fakeUploadStorage) Exists(_ context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.objects[key]
	return ok, nil
}

func testResolver(t *testing.T, uploads *fakeUploadStorage) *AssetResolver {
	t.Helper()
	return NewAssetResolver(t.TempDir(), 2, uploads, logger.New(nil))
}

func TestLocalPath(t *testing.T) {
	r := testResolver(t, &fakeUploadStorage{})

	tests := []struct {
		name     string
		asset    domain.Asset
		expected string
	}{
		{
			name:     "extension from file name",
			asset:    domain.Asset{ID: "a1", Name: "invoice.pdf", FileType: domain.FileTypePDF},
			expected: "a1.pdf",
		},
		{
			name:     "extension falls back to file type",
			asset:    domain.Asset{ID: "a2", Name: "invoice", FileType: domain.FileTypePDF},
			expected: "a2.pdf",
		},
		{
			name:     "uppercase type lowered",
			asset:    domain.Asset{ID: "a3", Name: "", FileType: domain.FileTypeMP4},
			expected: "a3.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.LocalPath(&tt.asset)
			if filepath.Base(got) != tt.expected {
				t.Errorf("LocalPath = %q, want base %q", got, tt.expected)
			}
		})
	}
}

func TestResolveUpload(t *testing.T) {
	uploads := &fakeUploadStorage{objects: map[string][]byte{
		"uploads/a1/invoice.pdf": []byte("pdf bytes"),
	}}
	r := testResolver(t, uploads)

	asset := &domain.Asset{
		ID:           "a1",
		Name:         "invoice.pdf",
		FileType:     domain.FileTypePDF,
		UploadSource: domain.SourceUpload,
		StorageKey:   "uploads/a1/invoice.pdf",
	}

	path, err := r.Resolve(context.Background(), asset)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("resolved file unreadable: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("unexpected file content: %q", data)
	}
}

func TestResolveReusesMaterializedFile(t *testing.T) {
	uploads := &fakeUploadStorage{objects: map[string][]byte{
		"k": []byte("content"),
	}}
	r := testResolver(t, uploads)

	asset := &domain.Asset{
		ID:           "a1",
		Name:         "doc.txt",
		FileType:     domain.FileTypeTXT,
		UploadSource: domain.SourceUpload,
		StorageKey:   "k",
	}

	first, err := r.Resolve(context.Background(), asset)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	second, err := r.Resolve(context.Background(), asset)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if first != second {
		t.Errorf("paths should match: %q vs %q", first, second)
	}
	if uploads.downloads != 1 {
		t.Errorf("second resolve should reuse the file, downloaded %d times", uploads.downloads)
	}
}

func TestResolveMissingStorageKey(t *testing.T) {
	uploads := &fakeUploadStorage{existsErr: errors.New("must not be called")}
	r := testResolver(t, uploads)

	asset := &domain.Asset{
		ID:           "a1",
		Name:         "doc.txt",
		FileType:     domain.FileTypeTXT,
		UploadSource: domain.SourceUpload,
	}

	_, err := r.Resolve(context.Background(), asset)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "storage_key" {
		t.Errorf("error should name the missing field, got %q", cfgErr.Field)
	}
}

func TestResolveNotFoundIsPermanent(t *testing.T) {
	uploads := &fakeUploadStorage{objects: map[string][]byte{}}
	r := testResolver(t, uploads)

	asset := &domain.Asset{
		ID:           "a1",
		Name:         "gone.pdf",
		FileType:     domain.FileTypePDF,
		UploadSource: domain.SourceUpload,
		StorageKey:   "uploads/gone.pdf",
	}

	start := time.Now()
	_, err := r.Resolve(context.Background(), asset)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	// Permanent failures short-circuit the retry loop and its backoff.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("not-found should fail fast, took %v", elapsed)
	}
}

func TestResolveUnknownSource(t *testing.T) {
	r := testResolver(t, &fakeUploadStorage{})

	asset := &domain.Asset{
		ID:           "a1",
		Name:         "x.pdf",
		FileType:     domain.FileTypePDF,
		UploadSource: domain.UploadSource("FTP"),
	}

	_, err := r.Resolve(context.Background(), asset)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError for unknown source, got %v", err)
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"no such bucket", &types.NoSuchBucket{}, true},
		{"wrapped no such key", fmt.Errorf("operation error S3: GetObject: %w", &types.NoSuchKey{}), true},
		{"transient failure", errors.New("connection reset"), false},
		{"message mentions the code only", errors.New("weird proxy said NoSuchKey"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.expected {
				t.Errorf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestResolveLeavesNoPartialFile(t *testing.T) {
	uploads := &fakeUploadStorage{existsErr: errors.New("storage flapping")}
	r := NewAssetResolver(t.TempDir(), 1, uploads, logger.New(nil))

	asset := &domain.Asset{
		ID:           "a1",
		Name:         "doc.pdf",
		FileType:     domain.FileTypePDF,
		UploadSource: domain.SourceUpload,
		StorageKey:   "k",
	}

	if _, err := r.Resolve(context.Background(), asset); err == nil {
		t.Fatal("expected resolve failure")
	}

	if _, err := os.Stat(r.LocalPath(asset)); !os.IsNotExist(err) {
		t.Error("failed resolve must not leave a file behind")
	}
}
