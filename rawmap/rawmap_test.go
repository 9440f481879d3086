package rawmap_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Travis-Britz/hexterrain"
	"github.com/Travis-Britz/hexterrain/rawmap"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var small = rawmap.Layout{Width: 3, Height: 2, HeaderSize: 4, RecordSize: 8, Blue: 1, Green: 2, Red: 3}

// blob encodes one record per pixel in storage order, with color derived from the stored position.
func blob(l rawmap.Layout) []byte {
	b := bytes.Repeat([]byte{0xee}, l.HeaderSize)
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			rec := bytes.Repeat([]byte{0xaa}, l.RecordSize)
			c := stored(x, y)
			rec[l.Blue], rec[l.Green], rec[l.Red] = c.B, c.G, c.R
			b = append(b, rec...)
		}
	}
	return b
}

func stored(x, y int) hexterrain.RGB {
	return hexterrain.RGB{R: uint8(10 + x), G: uint8(20 + y), B: uint8(30 + x + y)}
}

func TestDecode(t *testing.T) {
	img, err := rawmap.Decode(bytes.NewReader(blob(small)), small)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("expected 3x2; got %dx%d", img.Width, img.Height)
	}
	for y := 0; y < small.Height; y++ {
		for x := 0; x < small.Width; x++ {
			// mirrored then turned half way round: columns stay put and rows swap
			expected := stored(x, small.Height-1-y)
			if got := img.RGBAt(x, y); got != expected {
				t.Errorf("pixel %d,%d: expected %v; got %v", x, y, expected, got)
			}
		}
	}
}

func TestDecodeLength(t *testing.T) {
	b := blob(small)
	tt := map[string]struct {
		Input       []byte
		ExpectError error
	}{
		"exact":       {b, nil},
		"oversized":   {append(append([]byte{}, b...), 1, 2, 3, 4, 5, 6, 7, 8, 9), nil},
		"short":       {b[:len(b)-1], rawmap.ErrShortInput},
		"header only": {b[:small.HeaderSize], rawmap.ErrShortInput},
		"empty":       {nil, rawmap.ErrShortInput},
	}
	for name, tc := range tt {
		img, err := rawmap.Decode(bytes.NewReader(tc.Input), small)
		if !errors.Is(err, tc.ExpectError) {
			t.Errorf("%s: expected error %v; got %v", name, tc.ExpectError, err)
		}
		if tc.ExpectError != nil && img != nil {
			t.Errorf("%s: expected no raster on error", name)
		}
		if tc.ExpectError == nil && (img == nil || img.Width != small.Width) {
			t.Errorf("%s: expected a %dx%d raster", name, small.Width, small.Height)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	tt := map[string]rawmap.Layout{
		"zero width":      {Width: 0, Height: 1, RecordSize: 8, Blue: 1, Green: 2, Red: 3},
		"negative header": {Width: 1, Height: 1, HeaderSize: -1, RecordSize: 8, Blue: 1, Green: 2, Red: 3},
		"empty record":    {Width: 1, Height: 1, RecordSize: 0},
		"offset past end": {Width: 1, Height: 1, RecordSize: 3, Blue: 1, Green: 2, Red: 3},
		"negative offset": {Width: 1, Height: 1, RecordSize: 3, Blue: -1, Green: 1, Red: 2},
		"too large":       {Width: 1 << 20, Height: 1 << 20, RecordSize: 8, Blue: 1, Green: 2, Red: 3},
	}
	for name, l := range tt {
		if err := l.Validate(); !errors.Is(err, rawmap.ErrInvalidLayout) {
			t.Errorf("%s: expected ErrInvalidLayout; got %v", name, err)
		}
		if _, err := rawmap.Decode(bytes.NewReader(nil), l); !errors.Is(err, rawmap.ErrInvalidLayout) {
			t.Errorf("%s: expected Decode to reject the layout; got %v", name, err)
		}
	}
	if err := rawmap.DefaultLayout.Validate(); err != nil {
		t.Errorf("expected the default layout to be valid; got %s", err)
	}
	if got := rawmap.DefaultLayout.Size(); got != 2400*2400*8 {
		t.Errorf("expected default blob size %d; got %d", 2400*2400*8, got)
	}
}

func TestOpen(t *testing.T) {
	raw := blob(small)

	var zbuf bytes.Buffer
	zw, err := zstd.NewWriter(&zbuf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write(raw)
	zw.Close()

	var gbuf bytes.Buffer
	gw := gzip.NewWriter(&gbuf)
	gw.Write(raw)
	gw.Close()

	tt := map[string][]byte{
		"raw":  raw,
		"zstd": zbuf.Bytes(),
		"gzip": gbuf.Bytes(),
		"tiny": raw[:1],
	}
	for name, input := range tt {
		rc, err := rawmap.Open(bytes.NewReader(input))
		if err != nil {
			t.Errorf("%s: expected nil error; got %s", name, err)
			continue
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Errorf("%s: read failed: %s", name, err)
			continue
		}
		expected := raw
		if name == "tiny" {
			expected = raw[:1]
		}
		if !bytes.Equal(got, expected) {
			t.Errorf("%s: expected %d decompressed bytes to match; got %d bytes", name, len(expected), len(got))
		}
	}
}

func TestFetch(t *testing.T) {
	raw := blob(small)
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == "/missing.bin" {
			http.NotFound(w, r)
			return
		}
		w.Write(raw)
	}))
	defer ts.Close()

	ctx := context.Background()
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		f, err := rawmap.Fetch(ctx, ts.URL+"/TerrainMap.bin", dir)
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("fetch %d: body mismatch", i)
		}
	}
	if hits != 1 {
		t.Errorf("expected the second fetch to be served from the cache; server saw %d requests", hits)
	}

	if _, err := rawmap.Fetch(ctx, ts.URL+"/missing.bin", dir); err == nil {
		t.Error("expected an error for a 404 response")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the successful download in the cache; found %d entries", len(entries))
	}
}

func TestCacheName(t *testing.T) {
	a := rawmap.CacheName("https://example.com/maps/TerrainMap.zst?v=2")
	b := rawmap.CacheName("https://example.com/maps/TerrainMap.zst?v=2")
	c := rawmap.CacheName("https://example.com/maps/TerrainMap.zst?v=3")
	if a != b {
		t.Errorf("expected stable cache names; got %q and %q", a, b)
	}
	if a == c {
		t.Errorf("expected different urls to get different cache names")
	}
	if len(a) < 4 || a[len(a)-4:] != ".zst" {
		t.Errorf("expected the cache name to keep the file extension; got %q", a)
	}
}

func ExampleDecode() {
	// a single pixel with an 8 byte record; bytes 1, 2 and 3 are blue, green and red
	l := rawmap.Layout{Width: 1, Height: 1, RecordSize: 8, Blue: 1, Green: 2, Red: 3}
	img, err := rawmap.Decode(bytes.NewReader([]byte{0, 0x0f, 0x0b, 0x9e, 0, 0, 0, 0}), l)
	if err != nil {
		panic(err)
	}
	fmt.Println(img.RGBAt(0, 0))
	// Output: #9e0b0f
}
