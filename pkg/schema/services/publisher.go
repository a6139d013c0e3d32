// Package services publishes per-verse JSON snippets to a blob store laid out as
// {book_id}/{chapter}/{verse}.json.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Snippet is the published document of one verse row
type Snippet struct {
	BookID      string `json:"book_id"`
	Author      string `json:"author"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
	ChapterName string `json:"chapter_name,omitempty"`
	Volume      *int   `json:"volume,omitempty"`
	Type        string `json:"type"`
	Text        string `json:"text"`
}

// Key returns the snippet's object key
func (s Snippet) Key() string {
	return SnippetKey(s.BookID, s.Chapter, s.Verse)
}

// SnippetKey formats the object key of one verse
func SnippetKey(bookID string, chapter, verse int) string {
	return fmt.Sprintf("%s/%d/%d.json", strings.Trim(bookID, "/"), chapter, verse)
}

// Publisher stores objects under a key
type Publisher interface {
	// Publish writes body under key, replacing any existing object
	Publish(ctx context.Context, key string, body []byte) error
}

// PublishSnippet encodes the snippet and publishes it under its key
func PublishSnippet(ctx context.Context, p Publisher, s Snippet) error {
	if s.BookID == "" {
		return fmt.Errorf("snippet %d:%d has no book id", s.Chapter, s.Verse)
	}
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snippet: %w", err)
	}
	if err := p.Publish(ctx, s.Key(), body); err != nil {
		return fmt.Errorf("publish %s: %w", s.Key(), err)
	}
	return nil
}
