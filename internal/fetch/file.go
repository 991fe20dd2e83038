package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// indexFile is served for URLs whose path ends with a slash.
const indexFile = "index.html"

// FileFetcher serves pages from a directory snapshot instead of the
// network. A URL maps to the file at its path below the root directory;
// paths ending in "/" map to index.html in that directory. Scheme, host
// and query are ignored.
//
// Files are opened with os.OpenInRoot, so a URL cannot escape the
// snapshot directory.
type FileFetcher struct {
	dir string
}

// NewFileFetcher returns a FileFetcher rooted at dir.
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{dir: dir}
}

// Fetch reads the snapshot file for rawURL.
func (f *FileFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}

	name, err := snapshotPath(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}

	file, err := os.OpenInRoot(f.dir, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &StatusError{URL: rawURL, Code: http.StatusNotFound}
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}
	return data, nil
}

// snapshotPath converts a URL into a slash-separated path relative to the
// snapshot root.
func snapshotPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		p = path.Join(p, indexFile)
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/"), nil
}
