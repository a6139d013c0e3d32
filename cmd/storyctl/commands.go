package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/logger"
	"github.com/maktabah-search-api/internal/manifest"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/repository"
	"github.com/maktabah-search-api/internal/repository/corpus"
	"github.com/maktabah-search-api/internal/services"
	"github.com/maktabah-search-api/internal/story"
	"go.uber.org/zap"
)

// GenerateCmd runs the curation pipeline
type GenerateCmd struct {
	Query   string `arg:"" optional:"" help:"Topic query (defaults to the catalog query with --story)"`
	Author  string `help:"Restrict to one translator"`
	Chapter *int   `help:"Restrict to one chapter"`
	Story   string `help:"Catalog story name; takes title and query from the catalog and saves into STORIES_DIR"`
	Output  string `help:"Output path (default story-<unix>.xml)" type:"path"`
}

func (c *GenerateCmd) Run(g *Globals, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(g.Env, g.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	req := services.CurationRequest{Query: c.Query, Author: c.Author, Chapter: c.Chapter}
	var store *story.Store
	if c.Story != "" {
		catalog, err := config.LoadCatalog(cfg.Stories.CatalogPath)
		if err != nil {
			return err
		}
		if !catalog.Allowed(c.Story) {
			return fmt.Errorf("%w: %s is not in %s", models.ErrStoryNotFound, c.Story, cfg.Stories.CatalogPath)
		}
		meta := catalog.Meta(c.Story)
		req.Title = meta.Title
		if req.Query == "" {
			req.Query = meta.Query
		}
		store = story.NewStore(cfg.Stories.Dir, catalog)
	}

	ctx := logger.ContextWithLogger(context.Background(), log)
	repo, closeCorpus, err := corpus.Open(ctx, cfg.Corpus)
	if err != nil {
		return err
	}
	defer closeCorpus()

	svc := services.NewCurationService(repo, cfg.Search, cfg.Corpus.Timeout, log)
	s, err := svc.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate story: %w", err)
	}

	path := c.Output
	switch {
	case path != "":
		err = story.WriteFile(path, s)
	case store != nil:
		path = store.Path(c.Story)
		err = store.Save(c.Story, s)
	default:
		path = fmt.Sprintf("story-%d.xml", time.Now().Unix())
		err = story.WriteFile(path, s)
	}
	if err != nil {
		return err
	}
	log.Info("story generated",
		zap.String("path", path),
		zap.String("query", s.Query),
		zap.Int("verses", s.VersesCount()),
	)

	fmt.Fprintf(out, "Story generated: %s\n", path)
	fmt.Fprintf(out, "  Query:        %s\n", s.Query)
	fmt.Fprintf(out, "  Title:        %s\n", s.Title)
	fmt.Fprintf(out, "  Verses:       %d\n", s.VersesCount())
	fmt.Fprintf(out, "  Translations: %d\n", s.TranslationsCount())
	return nil
}

// ReorderCmd runs the reorder and repair tool
type ReorderCmd struct {
	Story          string `arg:"" help:"Story document to reorder" type:"existingfile"`
	Manifest       string `arg:"" help:"CSV manifest (order,section,chapter,verse_range,type)" type:"existingfile"`
	Output         string `arg:"" help:"Output story path" type:"path"`
	NoFetchMissing bool   `help:"Skip manifest verses absent from the story instead of fetching them"`
}

func (c *ReorderCmd) Run(g *Globals, out io.Writer) error {
	log, err := logger.NewLogger(g.Env, g.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	src, err := story.ReadFile(c.Story)
	if err != nil {
		return err
	}
	entries, err := manifest.ReadFile(c.Manifest)
	if err != nil {
		return err
	}

	ctx := logger.ContextWithLogger(context.Background(), log)
	var repo repository.CorpusRepository
	workers := 1
	var timeout time.Duration
	if !c.NoFetchMissing {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		var closeCorpus func() error
		repo, closeCorpus, err = corpus.Open(ctx, cfg.Corpus)
		if err != nil {
			return err
		}
		defer closeCorpus()
		workers, timeout = cfg.Stories.GapFillWorkers, cfg.Corpus.Timeout
	}

	svc := services.NewReorderService(repo, workers, timeout, log)
	res, err := svc.Reorder(ctx, src, entries, services.ReorderOptions{
		FetchMissing: !c.NoFetchMissing,
		Manifest:     filepath.Base(c.Manifest),
	})
	if err != nil {
		return fmt.Errorf("reorder story: %w", err)
	}
	if err := story.WriteFile(c.Output, res.Story); err != nil {
		return err
	}
	log.Info("story reordered",
		zap.String("path", c.Output),
		zap.Int("verses", res.Story.VersesCount()),
		zap.Int("fetched", res.Fetched),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("unused", res.Unused.Total()),
	)

	printReorderSummary(out, c.Output, len(entries), res)
	return nil
}

func printReorderSummary(out io.Writer, path string, entries int, res *services.ReorderResult) {
	fmt.Fprintf(out, "Story reordered: %s\n", path)
	fmt.Fprintf(out, "  Manifest entries: %d\n", entries)
	fmt.Fprintf(out, "  Verses:           %d\n", res.Story.VersesCount())
	fmt.Fprintf(out, "  Translations:     %d\n", res.Story.TranslationsCount())
	fmt.Fprintf(out, "  Sections:         %d\n", len(res.Story.Sections))
	fmt.Fprintf(out, "  Fetched:          %d\n", res.Fetched)
	fmt.Fprintf(out, "  Skipped:          %d\n", len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "    - order %d: %d:%d (%s)\n", s.Order, s.Chapter, s.Verse, s.Type)
	}
	printUnused(out, res.Unused)
}

func printUnused(out io.Writer, report models.UnusedReport) {
	if report.Total() == 0 {
		fmt.Fprintln(out, "\nAll story verses were used.")
		return
	}

	fmt.Fprintf(out, "\nUnused verses (%d):\n", report.Total())
	for _, t := range report.Types() {
		verses := report[t]
		fmt.Fprintf(out, "  %s (%d):\n", t, len(verses))
		for _, v := range verses {
			fmt.Fprintf(out, "    %d:%d [%d translations] %s\n", v.Chapter, v.Verse, v.Translations, v.Preview)
		}
	}
}
