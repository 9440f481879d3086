// Package imagefile reads terrain images and writes rendered maps.
package imagefile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"github.com/HugoSmits86/nativewebp"
	"github.com/Travis-Britz/hexterrain"
	"github.com/anthonynsimon/bild/transform"
	"github.com/ftrvxmtrx/tga"
)

// ErrUnknownFormat is returned (wrapped) for file names and format names that don't map to a Format.
var ErrUnknownFormat = errors.New("unknown image format")

// Format is an output encoding.
type Format uint8

const (
	PNG Format = iota
	WebP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case WebP:
		return "webp"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Extension returns the file extension for f, including the leading dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// MimeType returns the media type of f.
func (f Format) MimeType() string {
	switch f {
	case WebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// FormatFromPath picks the output format from the extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".webp":
		return WebP, nil
	default:
		return 0, fmt.Errorf("imagefile.FormatFromPath: %q: %w", path, ErrUnknownFormat)
	}
}

// decoders are picked by magic number.
// image.Decode can't be used: tga registers an empty magic that matches any input,
// and it sorts ahead of the standard library decoders. tga is tried last instead.
var decoders = []struct {
	name   string
	magic  string
	decode func(io.Reader) (image.Image, error)
}{
	{"png", "\x89PNG\r\n\x1a\n", png.Decode},
	{"jpeg", "\xff\xd8", jpeg.Decode},
	{"webp", "RIFF????WEBPVP8", webp.Decode},
	{"bmp", "BM????\x00\x00\x00\x00", bmp.Decode},
}

// match reports whether b starts with magic. '?' matches any byte.
func match(magic string, b []byte) bool {
	if len(b) < len(magic) {
		return false
	}
	for i, c := range []byte(magic) {
		if c != '?' && b[i] != c {
			return false
		}
	}
	return true
}

// Decode reads a png, jpeg, webp, bmp or tga image and returns its color channels.
// Alpha is discarded.
// The name of the detected format is returned as well.
// Input no decoder accepts returns an error wrapping [image.ErrFormat].
func Decode(r io.Reader) (*hexterrain.Raster, string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("imagefile.Decode: %w", err)
	}
	for _, d := range decoders {
		if !match(d.magic, b) {
			continue
		}
		img, err := d.decode(bytes.NewReader(b))
		if err != nil {
			return nil, "", fmt.Errorf("imagefile.Decode: %s: %w", d.name, err)
		}
		return hexterrain.FromImage(img), d.name, nil
	}
	img, err := tga.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("imagefile.Decode: %w", image.ErrFormat)
	}
	return hexterrain.FromImage(img), "tga", nil
}

// DecodeFile is like Decode but reads the named file.
func DecodeFile(name string) (*hexterrain.Raster, string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, "", fmt.Errorf("imagefile.DecodeFile: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes img to w in format f.
// PNG output uses the best available compression; WebP output is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		encoder := png.Encoder{
			CompressionLevel: png.BestCompression,
		}
		return encoder.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("imagefile.Encode: %s: %w", f, ErrUnknownFormat)
	}
}

// Renderer returns a reader of img encoded as f.
// Encoding runs in its own goroutine as the reader is consumed;
// an encoding failure is returned from Read.
// Closing the reader early stops the encoder.
func Renderer(img image.Image, f Format) io.ReadCloser {
	r, w := io.Pipe()
	if img == nil {
		w.CloseWithError(errors.New("imagefile.Renderer: nil image"))
		return r
	}
	go func() {
		w.CloseWithError(Encode(w, img, f))
	}()
	return r
}

// Upscale enlarges src by a whole number factor, repeating each pixel into a factor x factor block.
func Upscale(src *hexterrain.Raster, factor int) (*hexterrain.Raster, error) {
	if src == nil || src.Empty() {
		return nil, errors.New("imagefile.Upscale: empty source raster")
	}
	if factor < 1 {
		return nil, fmt.Errorf("imagefile.Upscale: factor must be at least 1; given %d", factor)
	}
	if factor == 1 {
		return src.Clone(), nil
	}
	resized := transform.Resize(src.RGBA(), src.Width*factor, src.Height*factor, transform.NearestNeighbor)
	return hexterrain.FromImage(resized), nil
}
