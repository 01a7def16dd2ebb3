// Package image normalizes uploaded recipe photos before they are sent to the model.
package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/png"

	"recipe-ingest/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// Processor decodes an upload, shrinks it to fit maxDimension and re-encodes it as JPEG.
type Processor struct {
	maxSizeBytes int64
	maxDimension int
	maxPixels    int64
}

// Result is a normalized image.
type Result struct {
	JPEG   []byte
	Width  int
	Height int
	Format string
}

// DataURI returns the image as a base64 JPEG data URI.
func (r *Result) DataURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(r.JPEG)
}

// NewProcessor creates a processor. A non-positive maxDimension disables resizing and a
// non-positive maxPixels disables the decoded area check.
func NewProcessor(maxSizeBytes int64, maxDimension, maxPixels int) *Processor {
	return &Processor{
		maxSizeBytes: maxSizeBytes,
		maxDimension: maxDimension,
		maxPixels:    int64(maxPixels),
	}
}

// Process validates and normalizes raw image bytes.
func (p *Processor) Process(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "image data is empty")
	}
	if p.maxSizeBytes > 0 && int64(len(data)) > p.maxSizeBytes {
		return nil, common.Wrapf(common.ErrInvalidImageSize, "image size %d exceeds maximum limit of %d bytes", len(data), p.maxSizeBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "failed to read image header (%s): %v", http.DetectContentType(data), err)
	}
	if p.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return nil, common.Wrapf(common.ErrInvalidImageSize, "image is %dx%d pixels, limit is %d pixels", cfg.Width, cfg.Height, p.maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "failed to decode image (%s): %v", http.DetectContentType(data), err)
	}
	if !isSupportedFormat(format) {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "unsupported image format: %s", format)
	}

	img = p.fit(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	b := img.Bounds()
	common.LogDebug("Image normalized",
		zap.String("format", format),
		zap.Int("input_bytes", len(data)),
		zap.Int("output_bytes", buf.Len()),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
	)

	return &Result{JPEG: buf.Bytes(), Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// ProcessDataURI accepts a "data:image/...;base64," string.
func (p *Processor) ProcessDataURI(uri string) (*Result, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "invalid image data format")
	}
	parts := strings.SplitN(uri, ",", 2)
	if len(parts) != 2 {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "invalid base64 data format")
	}
	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, common.Wrapf(common.ErrInvalidImageFormat, "failed to decode base64 data: %v", err)
	}
	return p.Process(data)
}

func (p *Processor) fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if p.maxDimension <= 0 || (w <= p.maxDimension && h <= p.maxDimension) {
		return img
	}

	if w >= h {
		h = h * p.maxDimension / w
		w = p.maxDimension
	} else {
		w = w * p.maxDimension / h
		h = p.maxDimension
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
