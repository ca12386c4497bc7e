// Package seed loads the catalog the store is populated with at startup.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/amaumene/streambox/internal/models"
)

//go:embed catalog.json
var defaultCatalog []byte

// DefaultEmbedBaseURL is the playback host embed links are generated for
const DefaultEmbedBaseURL = "https://embed.warezcdn.link"

// Load reads the catalog from path, or the embedded catalog when path is empty,
// and normalises it with embedBaseURL.
func Load(path, embedBaseURL string) ([]*models.Content, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
	}
	return Parse(data, embedBaseURL)
}

// Parse decodes a JSON catalog, fills in missing embed links and checks that
// every id is unique.
func Parse(data []byte, embedBaseURL string) ([]*models.Content, error) {
	var items []*models.Content
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(items))
	for i, c := range items {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate content id %s", models.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = true

		if c.Embed == "" {
			c.Embed = EmbedURL(embedBaseURL, c.ID, c.Type())
		}
	}

	return items, nil
}

// EmbedURL builds the playback locator for a content id
func EmbedURL(baseURL, id string, kind models.ContentType) string {
	if baseURL == "" {
		baseURL = DefaultEmbedBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if kind == models.ContentTypeMovie {
		return baseURL + "/filme/" + id
	}
	return baseURL + "/serie/" + id
}
