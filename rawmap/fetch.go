package rawmap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// Client is used by Fetch for downloads.
var Client = http.DefaultClient

// CacheName returns the file name a download of url is cached under.
// Names are stable across runs so that a url is downloaded once per cache directory.
func CacheName(rawurl string) string {
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawurl)).String()
	if u, err := url.Parse(rawurl); err == nil {
		name += path.Ext(u.Path)
	}
	return name
}

// Fetch returns the contents of url, downloading it into cacheDir the first time it is requested.
// A download that fails part way leaves nothing in the cache.
// The caller must close the returned file.
func Fetch(ctx context.Context, rawurl, cacheDir string) (*os.File, error) {
	filename := filepath.Join(cacheDir, CacheName(rawurl))
	f, err := os.Open(filename)
	if err == nil {
		slog.DebugContext(ctx, "cache hit", "url", rawurl, "file", filename)
		return f, nil
	}
	slog.DebugContext(ctx, "cache miss", "url", rawurl, "file", filename)

	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, fmt.Errorf("rawmap.Fetch: failed to create cache dir: %w", err)
	}
	if err := download(ctx, rawurl, filename); err != nil {
		return nil, fmt.Errorf("rawmap.Fetch: %w", err)
	}
	return os.Open(filename)
}

func download(ctx context.Context, rawurl, filename string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	response, err := Client.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("http response returned bad status code %q for %s", response.Status, rawurl)
	}
	slog.InfoContext(ctx, "downloading terrain map", "url", rawurl, "content_length", response.Header.Get("Content-Length"), "savepath", filename)

	// write beside the final name and rename once complete so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".download-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			rerr := os.Remove(tmp.Name())
			slog.DebugContext(ctx, "removing partial download", "file", tmp.Name(), "error", rerr)
		}
	}()

	n, err := io.Copy(tmp, response.Body)
	if err != nil {
		return fmt.Errorf("download failed after %d bytes: %w", n, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return err
	}
	slog.DebugContext(ctx, "download complete", "url", rawurl, "bytes", n)
	return nil
}
