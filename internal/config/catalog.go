package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StoryMeta describes one published story
type StoryMeta struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Query       string   `yaml:"query" json:"query"`
}

// Catalog is the allowlist of story names that may be served or generated
type Catalog struct {
	Stories map[string]StoryMeta `yaml:"stories"`
}

var storyNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// LoadCatalog reads and validates a YAML story catalog
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML story catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Stories == nil {
		c.Stories = map[string]StoryMeta{}
	}
	for name := range c.Stories {
		if !storyNameRegex.MatchString(name) {
			return nil, fmt.Errorf("invalid story name %q", name)
		}
	}
	return &c, nil
}

// Allowed reports whether the story name is in the catalog
func (c *Catalog) Allowed(name string) bool {
	_, ok := c.Stories[name]
	return ok
}

// Meta returns the story's metadata, or generated defaults for names outside the catalog
func (c *Catalog) Meta(name string) StoryMeta {
	if m, ok := c.Stories[name]; ok {
		if m.Query == "" {
			m.Query = name
		}
		return m
	}
	display := name
	if display != "" {
		display = strings.ToUpper(display[:1]) + display[1:]
	}
	return StoryMeta{
		Title:       "The Story of " + display,
		Description: "Discover verses about " + name + " from various Islamic texts and translations of the Quran.",
		Keywords:    []string{name, "Islam", "Quran"},
		Query:       name,
	}
}

// Names returns the catalog's story names sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Stories))
	for name := range c.Stories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
