package index

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/getnara/unstruct/internal/logger"
	"github.com/getnara/unstruct/internal/repository"
)

// VectorStore is the slice of the vector database the index needs.
type VectorStore interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	EnsureCollection(ctx context.Context, name string, dimension int) error
	DropCollection(ctx context.Context, name string) error
	UpsertPoints(ctx context.Context, collection string, points []repository.ContentPoint) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]repository.ScoredContent, error)
}

// Embedder produces vectors for passages, images, and queries.
type Embedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	EmbedTextQuery(ctx context.Context, query string) ([]float32, error)
	EmbedImages(ctx context.Context, imagesB64 []string) ([][]float32, error)
	EmbedImageQuery(ctx context.Context, query string) ([]float32, error)
	TextDimensions() int
	ImageDimensions() int
}

// Transcriber converts an audio file to text, empty on failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) string
}

// MultimodalIndex maintains one image and one text sub-index per asset.
// Each sub-index lives in its own vector store collection whose
// existence doubles as the "already indexed" marker, so indexing the
// same asset twice is a cheap no-op.
type MultimodalIndex struct {
	store        VectorStore
	embedder     Embedder
	transcriber  Transcriber
	workDir      string
	maxFrames    int
	chunkSize    int
	chunkOverlap int
	log          *logger.Logger

	pdfText   func(path string) (string, error)
	pdfImages func(path, outDir string) ([]string, error)
}

// Config holds tunables for the multimodal index.
type Config struct {
	WorkDir      string
	MaxFrames    int
	ChunkSize    int
	ChunkOverlap int
}

// NewMultimodalIndex creates a new index.
// Parameters:
//   - store: vector store holding the per-asset collections.
//   - embedder: embedding provider for both modalities.
//   - transcriber: speech-to-text provider.
//   - cfg: frame and chunking tunables.
//   - log: structured logger.
// Returns:
//   - *MultimodalIndex: initialized index.
func NewMultimodalIndex(store VectorStore, embedder Embedder, transcriber Transcriber, cfg *Config, log *logger.Logger) *MultimodalIndex {
	return &MultimodalIndex{
		store:        store,
		embedder:     embedder,
		transcriber:  transcriber,
		workDir:      cfg.WorkDir,
		maxFrames:    cfg.MaxFrames,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		log:          log.WithField(logger.FieldComponent, "index"),
		pdfText:      extractPDFText,
		pdfImages:    extractPDFImages,
	}
}

// ImageCollection returns the collection name of an asset's image sub-index.
func ImageCollection(assetID string) string {
	return "asset_" + sanitizeID(assetID) + "_images"
}

// TextCollection returns the collection name of an asset's text sub-index.
func TextCollection(assetID string) string {
	return "asset_" + sanitizeID(assetID) + "_texts"
}

func sanitizeID(id string) string {
	return strings.ReplaceAll(id, "-", "_")
}

// IndexVideo indexes a video asset: sampled frames into the image
// sub-index, the audio track's transcript into the text sub-index.
func (m *MultimodalIndex) IndexVideo(ctx context.Context, assetID, localPath string) error {
	log := m.log.WithField(logger.FieldAssetID, assetID)

	imagesDone, err := m.store.HasCollection(ctx, ImageCollection(assetID))
	if err != nil {
		return fmt.Errorf("failed to check image sub-index: %w", err)
	}
	textsDone, err := m.store.HasCollection(ctx, TextCollection(assetID))
	if err != nil {
		return fmt.Errorf("failed to check text sub-index: %w", err)
	}
	if imagesDone && textsDone {
		log.Debug("video already indexed")
		return nil
	}

	scratch := filepath.Join(m.workDir, assetID+"_media")
	defer os.RemoveAll(scratch)

	if !imagesDone {
		frames, err := extractFrames(ctx, localPath, filepath.Join(scratch, "frames"), m.maxFrames)
		if err != nil {
			return fmt.Errorf("failed to extract frames: %w", err)
		}

		framesB64 := make([]string, 0, len(frames))
		refs := make([]string, 0, len(frames))
		for i, frame := range frames {
			data, err := loadIndexableImage(frame)
			if err != nil {
				return fmt.Errorf("failed to read frame: %w", err)
			}
			framesB64 = append(framesB64, base64.StdEncoding.EncodeToString(data))
			refs = append(refs, fmt.Sprintf("Frame at %ds", i))
		}

		if err := m.buildImageIndex(ctx, assetID, framesB64, refs); err != nil {
			return err
		}
		log.WithField(logger.FieldCount, len(framesB64)).Info("video frames indexed")
	}

	if !textsDone {
		transcript := ""
		wavPath, err := extractAudioTrack(ctx, localPath, filepath.Join(scratch, "audio"))
		if err != nil {
			// Silent videos have no track to transcribe.
			log.WithError(err).Debug("no audio track extracted")
		} else {
			transcript = m.transcriber.Transcribe(ctx, wavPath)
		}

		if err := m.buildTextIndex(ctx, assetID, transcript, "Transcript"); err != nil {
			return err
		}
	}

	return nil
}

// IndexAudio indexes an audio asset's transcript into the text sub-index.
func (m *MultimodalIndex) IndexAudio(ctx context.Context, assetID, localPath string) error {
	done, err := m.store.HasCollection(ctx, TextCollection(assetID))
	if err != nil {
		return fmt.Errorf("failed to check text sub-index: %w", err)
	}
	if done {
		return nil
	}

	transcript := m.transcriber.Transcribe(ctx, localPath)
	return m.buildTextIndex(ctx, assetID, transcript, "Transcript")
}

// IndexDocument indexes a document asset: the extracted text layer into
// the text sub-index and, for PDFs, embedded images into the image
// sub-index so scanned pages stay retrievable. The two sub-paths are
// independent; indexing fails only when neither yields anything.
func (m *MultimodalIndex) IndexDocument(ctx context.Context, assetID, localPath string) error {
	log := m.log.WithField(logger.FieldAssetID, assetID)
	isPDF := strings.EqualFold(filepath.Ext(localPath), ".pdf")

	textsDone, err := m.store.HasCollection(ctx, TextCollection(assetID))
	if err != nil {
		return fmt.Errorf("failed to check text sub-index: %w", err)
	}

	// A scanned PDF can have an unreadable text layer and still carry
	// page images, so a text failure is held until the image branch has
	// had its chance.
	var textErr error
	if !textsDone {
		var text string
		if isPDF {
			text, textErr = m.pdfText(localPath)
		} else {
			data, err := os.ReadFile(localPath)
			if err != nil {
				textErr = fmt.Errorf("failed to read document: %w", err)
			} else {
				text = string(data)
			}
		}

		if textErr == nil {
			textErr = m.buildTextIndex(ctx, assetID, text, "Passage")
		}
		if textErr != nil {
			log.WithError(textErr).Warn("document text indexing failed")
		}
	}

	if !isPDF {
		return textErr
	}

	imagesDone, err := m.store.HasCollection(ctx, ImageCollection(assetID))
	if err != nil {
		return fmt.Errorf("failed to check image sub-index: %w", err)
	}
	if imagesDone {
		return nil
	}

	scratch := filepath.Join(m.workDir, assetID+"_pages")
	defer os.RemoveAll(scratch)

	paths, imgErr := m.pdfImages(localPath, scratch)
	if imgErr != nil {
		if textErr != nil {
			return fmt.Errorf("document has no indexable content: %v; %v", textErr, imgErr)
		}
		// Text is indexed. An empty image sub-index stops the next run
		// from retrying a PDF whose images cannot be decoded.
		log.WithError(imgErr).Warn("PDF image extraction failed")
		paths = nil
	}

	imagesB64 := make([]string, 0, len(paths))
	refs := make([]string, 0, len(paths))
	for i, p := range paths {
		data, err := loadIndexableImage(p)
		if err != nil {
			log.WithError(err).Warn("skipping unreadable extracted image")
			continue
		}
		imagesB64 = append(imagesB64, base64.StdEncoding.EncodeToString(data))
		refs = append(refs, fmt.Sprintf("Image %d", i+1))
	}

	if err := m.buildImageIndex(ctx, assetID, imagesB64, refs); err != nil {
		if textErr != nil {
			return fmt.Errorf("document has no indexable content: %v; %v", textErr, err)
		}
		return err
	}
	log.WithField(logger.FieldCount, len(imagesB64)).Info("document images indexed")
	return nil
}

// buildImageIndex creates the image sub-index collection and fills it.
// An empty input still creates the collection so existence keeps
// meaning "indexed".
func (m *MultimodalIndex) buildImageIndex(ctx context.Context, assetID string, imagesB64, refs []string) error {
	collection := ImageCollection(assetID)
	if err := m.store.EnsureCollection(ctx, collection, m.embedder.ImageDimensions()); err != nil {
		return err
	}
	if len(imagesB64) == 0 {
		return nil
	}

	vectors, err := m.embedder.EmbedImages(ctx, imagesB64)
	if err != nil {
		return fmt.Errorf("failed to embed images: %w", err)
	}

	points := make([]repository.ContentPoint, len(imagesB64))
	for i := range imagesB64 {
		points[i] = repository.ContentPoint{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: repository.ContentPayload{
				AssetID:   assetID,
				Kind:      "image",
				Content:   imagesB64[i],
				Reference: refs[i],
			},
		}
	}
	return m.store.UpsertPoints(ctx, collection, points)
}

// buildTextIndex chunks text, creates the text sub-index collection,
// and fills it.
func (m *MultimodalIndex) buildTextIndex(ctx context.Context, assetID, text, refPrefix string) error {
	collection := TextCollection(assetID)
	if err := m.store.EnsureCollection(ctx, collection, m.embedder.TextDimensions()); err != nil {
		return err
	}

	chunks, err := chunkText(text, m.chunkSize, m.chunkOverlap)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := m.embedder.EmbedPassages(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}

	points := make([]repository.ContentPoint, len(chunks))
	for i, chunk := range chunks {
		points[i] = repository.ContentPoint{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: repository.ContentPayload{
				AssetID:   assetID,
				Kind:      "text",
				Content:   chunk,
				Reference: fmt.Sprintf("%s %d", refPrefix, i+1),
			},
		}
	}
	return m.store.UpsertPoints(ctx, collection, points)
}

// Retrieved holds the top matches from both sub-indices for one query.
type Retrieved struct {
	Images []repository.ScoredContent
	Texts  []repository.ScoredContent
}

// Invoke retrieves the most relevant images and passages of an asset
// for a query. The two sub-indices are searched independently; a
// missing or failing branch degrades to empty results instead of
// failing the whole retrieval.
func (m *MultimodalIndex) Invoke(ctx context.Context, assetID, query string, topK int) (*Retrieved, error) {
	result := &Retrieved{}
	log := m.log.WithField(logger.FieldAssetID, assetID)

	if hits, err := m.searchBranch(ctx, ImageCollection(assetID), query, topK, true); err != nil {
		log.WithError(err).Warn("image retrieval degraded")
	} else {
		result.Images = hits
	}

	if hits, err := m.searchBranch(ctx, TextCollection(assetID), query, topK, false); err != nil {
		log.WithError(err).Warn("text retrieval degraded")
	} else {
		result.Texts = hits
	}

	return result, nil
}

func (m *MultimodalIndex) searchBranch(ctx context.Context, collection, query string, topK int, image bool) ([]repository.ScoredContent, error) {
	exists, err := m.store.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var vector []float32
	if image {
		vector, err = m.embedder.EmbedImageQuery(ctx, query)
	} else {
		vector, err = m.embedder.EmbedTextQuery(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	return m.store.Search(ctx, collection, vector, topK)
}

// Drop removes both sub-indices of an asset.
func (m *MultimodalIndex) Drop(ctx context.Context, assetID string) error {
	var firstErr error
	for _, name := range []string{ImageCollection(assetID), TextCollection(assetID)} {
		exists, err := m.store.HasCollection(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !exists {
			continue
		}
		if err := m.store.DropCollection(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
