package rawmap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Open returns a reader of the uncompressed blob in r.
// zstd and gzip streams are recognized by their magic bytes and decompressed;
// anything else is passed through unchanged.
// Closing the returned reader does not close r.
func Open(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("rawmap.Open: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		d, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("rawmap.Open: zstd: %w", err)
		}
		return d.IOReadCloser(), nil
	case bytes.HasPrefix(head, gzipMagic):
		z, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("rawmap.Open: gzip: %w", err)
		}
		return z, nil
	default:
		return io.NopCloser(br), nil
	}
}
