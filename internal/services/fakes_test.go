package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/query"
	"github.com/maktabah-search-api/internal/repository"
	"github.com/maktabah-search-api/internal/repository/memory"
)

// failingCorpus reports every call as unavailable
type failingCorpus struct {
	calls atomic.Int32
}

func (f *failingCorpus) SearchRows(context.Context, query.Query, int, int, *repository.Highlight) (repository.RowPage, error) {
	f.calls.Add(1)
	return repository.RowPage{}, models.Unavailable("search rows", context.DeadlineExceeded)
}

func (f *failingCorpus) AggregateVerses(context.Context, query.Query, repository.AggregateOptions) ([]repository.Bucket, error) {
	f.calls.Add(1)
	return nil, models.Unavailable("aggregate verses", context.DeadlineExceeded)
}

func (f *failingCorpus) FindByCoordinate(context.Context, int, int) ([]models.VerseRow, error) {
	f.calls.Add(1)
	return nil, models.Unavailable("find verse", context.DeadlineExceeded)
}

func (f *failingCorpus) Ping(context.Context) error {
	return models.Unavailable("ping", context.DeadlineExceeded)
}

// slowCorpus wraps a corpus and records the peak number of concurrent lookups
type slowCorpus struct {
	repository.CorpusRepository
	delay time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (s *slowCorpus) FindByCoordinate(ctx context.Context, chapter, verse int) ([]models.VerseRow, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return s.CorpusRepository.FindByCoordinate(ctx, chapter, verse)
}

func row(chapter, verse int, author, chapterName, text string) models.VerseRow {
	return models.VerseRow{
		BookID:      author,
		Author:      author,
		Chapter:     chapter,
		Verse:       verse,
		ChapterName: chapterName,
		Text:        text,
	}
}

// mercyCorpus has three translator rows at (7,12) and one at (7,13)
func mercyCorpus(t *testing.T) *memory.CorpusRepository {
	t.Helper()
	return memory.NewCorpusRepository([]models.VerseRow{
		row(7, 12, "Saheeh International", "", "My mercy encompasses all things"),
		row(7, 12, "Pickthall", "", "My mercy embraceth all things"),
		row(7, 12, "Yusuf Ali", "", "My mercy extendeth to all things"),
		row(7, 13, "Saheeh International", "", "Mercy upon those who believe"),
		row(1, 1, "Saheeh International", "", "In the name of Allah"),
	})
}

// collisionCorpus puts scripture and narrative rows at the same coordinates
func collisionCorpus(t *testing.T) *memory.CorpusRepository {
	t.Helper()
	return memory.NewCorpusRepository([]models.VerseRow{
		row(1, 1, "Arberry", "", "Praise belongs to God, the Lord of mercy"),
		row(1, 1, "Pickthall", "", "Praise be to Allah, Lord of mercy"),
		row(1, 1, "Bukhari", "Revelation", "The first mercy was revelation"),
		row(2, 3, "Shakir", "", "Those who believe and show mercy"),
		row(2, 3, "Bukhari", "Belief", "Mercy is part of belief"),
		row(2, 3, "Muslim", "Belief", "Mercy is from belief"),
		row(2, 3, "Malik", "Belief", "Show mercy to be shown mercy"),
	})
}
