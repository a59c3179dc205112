package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// ErrNotFound is returned by Get when no set was saved for a product
var ErrNotFound = errors.New("recommendation set not found")

// Entry is one ranked neighbour inside a RecommendationSet
type Entry struct {
	RowIndex    int     `json:"row_index"`
	ProductName string  `json:"product_name"`
	Score       float64 `json:"score"`
}

// RecommendationSet is the precomputed ranking for one catalog product
type RecommendationSet struct {
	Product     string    `json:"product"`
	RowIndex    int       `json:"row_index"`
	GeneratedAt time.Time `json:"generated_at"`
	SnapshotID  string    `json:"snapshot_id"`
	Items       []Entry   `json:"items"`
}

// RecommendationStorage defines the interface for persisting exported rankings
type RecommendationStorage interface {
	Save(set *RecommendationSet) error
	Get(product string) (*RecommendationSet, error)
	List() ([]string, error)
	Close() error
}

// FileStorage implements RecommendationStorage with one JSON file per product
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Save writes the set to <dir>/<safe product name>.json, replacing any earlier export
func (fs *FileStorage) Save(set *RecommendationSet) error {
	if set.Product == "" {
		return errors.New("recommendation set has no product name")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation set: %w", err)
	}

	path := filepath.Join(fs.baseDir, safeFilename(set.Product))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get loads the set saved for product
func (fs *FileStorage) Get(product string) (*RecommendationSet, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path := filepath.Join(fs.baseDir, safeFilename(product))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, product)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var set RecommendationSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendation set: %w", err)
	}

	return &set, nil
}

// List returns the product names of all saved sets, sorted
func (fs *FileStorage) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	files, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	var products []string
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(fs.baseDir, file.Name()))
		if err != nil {
			continue
		}

		var set RecommendationSet
		if err := json.Unmarshal(data, &set); err == nil && set.Product != "" {
			products = append(products, set.Product)
		}
	}

	sort.Strings(products)
	return products, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

// safeFilename keeps ASCII letters and digits and replaces everything else
func safeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe + ".json"
}
