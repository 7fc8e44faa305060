package covers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/storyshelf/internal/entities"
)

// Max size of a downloaded cover
const maxCoverSize = 10 << 20

// Fetcher downloads cover images, keeping a copy of each on disk.
type Fetcher struct {
	cacheDir   string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher caching into cacheDir.
func NewFetcher(cacheDir string) (*Fetcher, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Fetcher{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Fetch returns the image at url, from the cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*entities.Image, error) {
	if url == "" {
		return nil, nil
	}

	cachePath := filepath.Join(f.cacheDir, f.filename(url))
	if data, err := os.ReadFile(cachePath); err == nil {
		return entities.NewImage(data), nil
	}

	if err := f.fetchAndCache(ctx, url, cachePath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	return entities.NewImage(data), nil
}

// CacheDir returns the cache directory path.
func (f *Fetcher) CacheDir() string {
	return f.cacheDir
}

func (f *Fetcher) filename(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("cover_%x", hash[:12])
}

func (f *Fetcher) fetchAndCache(ctx context.Context, url, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "storyshelf/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(f.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, io.LimitReader(resp.Body, maxCoverSize)); err != nil {
		return err
	}
	tmpFile.Close()

	return os.Rename(tmpPath, cachePath)
}
