package story

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/models"
)

// Summary is a catalog entry with its on-disk availability
type Summary struct {
	Name string `json:"name"`
	config.StoryMeta
	Available bool `json:"available"`
}

// Store serves catalogued story documents from a directory
type Store struct {
	dir     string
	catalog *config.Catalog
}

// NewStore creates a story store rooted at dir
func NewStore(dir string, catalog *config.Catalog) *Store {
	return &Store{dir: dir, catalog: catalog}
}

// Path returns the file path of the named story
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".xml")
}

// Load reads and decodes the named story. Names outside the catalog are never read from disk.
func (s *Store) Load(name string) (*models.Story, error) {
	if !s.catalog.Allowed(name) {
		return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, name)
	}
	st, err := ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", name, err)
	}
	return st, nil
}

// Raw returns the named story document unparsed
func (s *Store) Raw(name string) ([]byte, error) {
	if !s.catalog.Allowed(name) {
		return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, name)
	}
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrStoryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read story %s: %w", name, err)
	}
	return data, nil
}

// Save writes the story under name
func (s *Store) Save(name string, st *models.Story) error {
	if !s.catalog.Allowed(name) {
		return fmt.Errorf("%w: %s", models.ErrStoryNotFound, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create stories dir: %w", err)
	}
	return WriteFile(s.Path(name), st)
}

// List returns every catalogued story sorted by name
func (s *Store) List() []Summary {
	names := s.catalog.Names()
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		_, err := os.Stat(s.Path(name))
		out = append(out, Summary{Name: name, StoryMeta: s.catalog.Meta(name), Available: err == nil})
	}
	return out
}
