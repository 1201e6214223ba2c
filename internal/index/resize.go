package index

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// maxImageDim bounds the longer edge of indexed images. Embedding
// providers cap request sizes, and CLIP models downsample internally
// anyway, so shipping full-resolution frames is wasted bandwidth.
const maxImageDim = 512

// loadIndexableImage reads an image file and re-encodes it as a JPEG no
// larger than maxImageDim on its longer edge.
func loadIndexableImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageDim || h > maxImageDim {
		if w >= h {
			h = h * maxImageDim / w
			w = maxImageDim
		} else {
			w = w * maxImageDim / h
			h = maxImageDim
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
