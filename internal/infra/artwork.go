package infra

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// ArtworkCache downloads and caches thumbnails of listed items for the
// gallery view. Artwork never participates in bid or escrow logic.
type ArtworkCache struct {
	basePath string
	cdnBase  string
	client   *http.Client
}

// NewArtworkCache creates a new ArtworkCache
func NewArtworkCache(cdnBase string) (*ArtworkCache, error) {
	path, err := getArtworkPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artwork path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artwork directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &ArtworkCache{
		basePath: path,
		cdnBase:  strings.TrimSuffix(cdnBase, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadThumbnail fetches the artwork for an item if not already cached.
// Returns the local file path on success.
// Images are resized to 256x256 pixels for consistent gallery display.
func (c *ArtworkCache) DownloadThumbnail(collection string, tokenID uint64) (string, error) {
	// Security: Sanitize collection to prevent path traversal
	safeCollection := sanitizeCollection(collection)
	if safeCollection == "" {
		return "", fmt.Errorf("invalid collection: %s", collection)
	}

	fileName := fmt.Sprintf("%s_%d.png", strings.ToLower(safeCollection), tokenID)
	filePath := filepath.Join(c.basePath, fileName)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	url := fmt.Sprintf("%s/%s/%d.png", c.cdnBase, strings.ToLower(collection), tokenID)

	resp, err := c.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	// Decode the image
	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, 256, 256, imaging.Lanczos)

	// Save the resized image
	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// ThumbnailPath returns the local path for an item's thumbnail
func (c *ArtworkCache) ThumbnailPath(collection string, tokenID uint64) string {
	return filepath.Join(c.basePath, fmt.Sprintf("%s_%d.png", strings.ToLower(collection), tokenID))
}

func getArtworkPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "NFTAuction", "assets", "artwork"), nil
}

func sanitizeCollection(collection string) string {
	res := make([]rune, 0, len(collection))
	for _, r := range collection {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			res = append(res, r)
		}
	}
	return string(res)
}
