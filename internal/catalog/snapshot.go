package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avvvet/storebuddy/internal/models"
)

// Snapshotter reads and writes the whole catalog at once.
// This allows us to swap between a JSON file, Redis, etc.
type Snapshotter interface {
	// Load reads the full catalog in stored order
	Load(ctx context.Context) ([]models.Product, error)

	// Save replaces the stored catalog; it must not leave a partial write behind
	Save(ctx context.Context, products []models.Product) error
}

// FileSnapshot implements Snapshotter on a local JSON file
type FileSnapshot struct {
	Path string
}

// NewFileSnapshot creates a file-backed snapshot
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{Path: path}
}

// Load reads and decodes the snapshot file
func (f *FileSnapshot) Load(ctx context.Context) ([]models.Product, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrSnapshotIO, f.Path, err)
	}
	return decodeCatalog(data)
}

// Save writes the catalog to a temp file, fsyncs it and renames it over the target.
func (f *FileSnapshot) Save(ctx context.Context, products []models.Product) error {
	data, err := encodeCatalog(products)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to ensure catalog directory: %v", ErrSnapshotIO, err)
	}

	// same directory so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(dir, "tmp-catalog-*.json")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrSnapshotIO, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("%w: failed to write temp file: %v", ErrSnapshotIO, err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("%w: failed to fsync temp file: %v", ErrSnapshotIO, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp file: %v", ErrSnapshotIO, err)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		return fmt.Errorf("%w: failed to replace snapshot: %v", ErrSnapshotIO, err)
	}
	return nil
}

// legacySnapshot is the older {"computers": [...]} layout
type legacySnapshot struct {
	Computers []models.Product `json:"computers"`
}

func decodeCatalog(data []byte) ([]models.Product, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrSnapshotParse)
	}

	var products []models.Product
	if trimmed[0] == '{' {
		var legacy legacySnapshot
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotParse, err)
		}
		products = legacy.Computers
	} else if err := json.Unmarshal(trimmed, &products); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotParse, err)
	}

	if err := validateCatalog(products); err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].PriceCategory == "" {
			products[i].PriceCategory = models.PriceTier(products[i].Price)
		}
	}
	return products, nil
}

func encodeCatalog(products []models.Product) ([]byte, error) {
	if products == nil {
		products = []models.Product{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return data, nil
}

func validateCatalog(products []models.Product) error {
	seen := make(map[int]struct{}, len(products))
	var errs []error
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate product id %d", p.ID))
		}
		seen[p.ID] = struct{}{}
		if p.Quantity < 0 {
			errs = append(errs, fmt.Errorf("product %d has negative quantity", p.ID))
		}
		if p.Price != nil && *p.Price < 0 {
			errs = append(errs, fmt.Errorf("product %d has negative price", p.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrSnapshotParse, errors.Join(errs...))
	}
	return nil
}
