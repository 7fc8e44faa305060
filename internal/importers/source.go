package importers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Upper bound for a downloaded source
const maxSourceSize = 64 << 20

var httpClient = &http.Client{Timeout: 60 * time.Second}

func isHTTP(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// localPath strips a file:// scheme.
func localPath(url string) string {
	return strings.TrimPrefix(url, "file://")
}

// hasExtension reports whether the path part of url ends in ext.
func hasExtension(url, ext string) bool {
	path := url
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.EqualFold(filepath.Ext(path), ext)
}

// readSource loads the whole content behind url.
func readSource(ctx context.Context, url string) ([]byte, error) {
	if !isHTTP(url) {
		data, err := os.ReadFile(localPath(url))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", url, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "storyshelf/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
}
