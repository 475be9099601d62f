// Package thumbnail renders catalog thumbnails and the placeholder image
// served when a remote image is not cached yet.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	// DefaultSize is the bounding box of a thumbnail, in pixels.
	DefaultSize = 150
	// Quality is the JPEG quality of written thumbnails.
	Quality = 85

	placeholderSize = 512
)

var placeholderGray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Generator produces JPEG thumbnails.
type Generator struct {
	Size int
}

// NewGenerator returns a Generator with the default size.
func NewGenerator() *Generator {
	return &Generator{Size: DefaultSize}
}

// Make fits src into a Size x Size box, flattens transparency onto white and
// writes the result to dst as JPEG. dst is replaced atomically.
func (g *Generator) Make(src, dst string) error {
	size := g.Size
	if size <= 0 {
		size = DefaultSize
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	bg := imaging.New(thumb.Bounds().Dx(), thumb.Bounds().Dy(), color.White)
	flat := imaging.Overlay(bg, thumb, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return writeAtomic(dst, buf.Bytes())
}

// Placeholder returns a plain gray PNG.
func Placeholder() []byte {
	img := imaging.New(placeholderSize, placeholderSize, placeholderGray)
	var buf bytes.Buffer
	// Encoding an in-memory NRGBA as PNG cannot fail.
	_ = imaging.Encode(&buf, img, imaging.PNG)
	return buf.Bytes()
}

func writeAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".thumb-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close thumbnail: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("chmod thumbnail: %w", err)
	}
	if err := os.Rename(name, dst); err != nil {
		return fmt.Errorf("rename thumbnail: %w", err)
	}
	return nil
}
