// Package rawmap decodes the uncompressed terrain map blob exported from the game client.
//
// The blob is a fixed size header followed by one fixed size record per pixel.
// Only three bytes of each record carry color; the rest are ignored.
// Records are stored mirrored and upside down relative to the map,
// so decoding flips the image back into map orientation.
package rawmap

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/Travis-Britz/hexterrain"
	"github.com/anthonynsimon/bild/transform"
)

var (
	// ErrShortInput is returned (wrapped) when the blob ends before every pixel record was read.
	ErrShortInput = errors.New("input shorter than layout")

	// ErrInvalidLayout is returned (wrapped) by Layout.Validate.
	ErrInvalidLayout = errors.New("invalid layout")
)

// Layout describes the byte layout of a terrain blob.
type Layout struct {
	Width, Height int

	// HeaderSize is the number of bytes skipped before the first record.
	HeaderSize int

	// RecordSize is the number of bytes per pixel.
	RecordSize int

	// Blue, Green and Red are the byte offsets of each channel within a record.
	Blue, Green, Red int
}

// DefaultLayout is the layout of TerrainMap.uncompressed.
var DefaultLayout = Layout{
	Width:      2400,
	Height:     2400,
	HeaderSize: 0,
	RecordSize: 8,
	Blue:       1,
	Green:      2,
	Red:        3,
}

// Validate reports whether l describes a usable layout.
func (l Layout) Validate() error {
	switch {
	case l.Width <= 0 || l.Height <= 0:
		return fmt.Errorf("dimensions must be positive; given %dx%d: %w", l.Width, l.Height, ErrInvalidLayout)
	case l.HeaderSize < 0:
		return fmt.Errorf("header size must not be negative; given %d: %w", l.HeaderSize, ErrInvalidLayout)
	case l.RecordSize < 1:
		return fmt.Errorf("record size must be at least 1; given %d: %w", l.RecordSize, ErrInvalidLayout)
	}
	for name, off := range map[string]int{"blue": l.Blue, "green": l.Green, "red": l.Red} {
		if off < 0 || off >= l.RecordSize {
			return fmt.Errorf("%s offset %d is outside the %d byte record: %w", name, off, l.RecordSize, ErrInvalidLayout)
		}
	}
	if l.Width > math.MaxInt32/l.Height || l.Width*l.Height > (math.MaxInt32-l.HeaderSize)/l.RecordSize {
		return fmt.Errorf("%dx%d records of %d bytes is too large: %w", l.Width, l.Height, l.RecordSize, ErrInvalidLayout)
	}
	return nil
}

// Size returns the number of bytes a blob must have, header included.
// Bytes past Size are ignored.
func (l Layout) Size() int {
	return l.HeaderSize + l.Width*l.Height*l.RecordSize
}

// Decode reads a terrain blob laid out as l and returns it as a raster in map orientation.
// Input past the last record is not read.
func Decode(r io.Reader, l Layout) (*hexterrain.Raster, error) {
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("rawmap.Decode: %w", err)
	}

	buf := make([]byte, l.Size())
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("rawmap.Decode: read %d of %d bytes: %w", n, len(buf), ErrShortInput)
	}
	if err != nil {
		return nil, fmt.Errorf("rawmap.Decode: %w", err)
	}

	img := unpack(buf[l.HeaderSize:], l)

	// mirroring and then rotating half a turn is a vertical flip
	return hexterrain.FromImage(transform.FlipV(img)), nil
}

// unpack copies the color bytes of every record into an opaque RGBA image without reorienting it.
func unpack(records []byte, l Layout) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	for i, j := 0, 0; j < len(img.Pix); i, j = i+l.RecordSize, j+4 {
		rec := records[i : i+l.RecordSize]
		img.Pix[j] = rec[l.Red]
		img.Pix[j+1] = rec[l.Green]
		img.Pix[j+2] = rec[l.Blue]
		img.Pix[j+3] = 0xff
	}
	return img
}
