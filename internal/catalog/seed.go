// Package catalog loads the bundled collectible list into an empty catalog.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/repository"
)

// ErrInvalidSeed is returned when the seed file is not valid JSON.
var ErrInvalidSeed = errors.New("invalid catalog seed file")

// seedEntry is one object of the seed file.
type seedEntry struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Img  string   `json:"img"`
	Tags []string `json:"tags"`
}

// Parse decodes a seed document. A document that is valid JSON but not an
// array yields no entries and ok=false. Entries without a name, or with fields
// of the wrong type, are skipped with a warning.
func Parse(data []byte) (items []model.Collectible, ok bool, err error) {
	if !json.Valid(data) {
		return nil, false, ErrInvalidSeed
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	items = make([]model.Collectible, 0, len(raw))
	for i, msg := range raw {
		var e seedEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			log.Warn().Int("index", i).Err(err).Msg("Skipping malformed catalog entry")
			continue
		}
		if e.Name == "" {
			log.Warn().Int("index", i).Msg("Skipping catalog entry without a name")
			continue
		}

		id := e.ID
		if id == "" {
			id = e.Name
		}
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		items = append(items, model.Collectible{ID: id, Name: e.Name, Image: e.Img, Tags: tags})
	}

	return items, true, nil
}

// Seed fills the catalog from the file at path when the catalog is empty.
// A missing file or a non-array document is logged and leaves the catalog
// empty. Returns the number of collectibles inserted.
func Seed(ctx context.Context, store repository.CatalogStore, path string) (int64, error) {
	existing, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		log.Info().Int64("count", existing).Msg("Catalog already present")
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", path).Msg("Catalog seed file not found; starting with an empty catalog")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read catalog seed: %w", err)
	}

	items, ok, err := Parse(data)
	if err != nil {
		return 0, err
	}
	if !ok {
		log.Warn().Str("path", path).Msg("Catalog seed file should contain a JSON array")
		return 0, nil
	}
	if len(items) == 0 {
		return 0, nil
	}

	inserted, err := store.InsertMany(ctx, items)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("inserted", inserted).Str("path", path).Msg("Seeded catalog")
	return inserted, nil
}
