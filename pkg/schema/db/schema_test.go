package db

import (
	"context"
	"strings"
	"testing"
)

func TestSQLiteSchema(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := Migrate(ctx, conn); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			t.Skip("FTS5 not available")
		}
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(ctx, conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	vol := 1
	n, err := InsertVerseRows(ctx, conn, []VerseRow{
		{BookID: "en-pickthall", Chapter: 1, Verse: 2, Author: "Pickthall", Text: "Praise be to Allah"},
		{BookID: "en-pickthall", Chapter: 1, Verse: 1, Author: "Pickthall", Text: "In the name of Allah"},
		{BookID: "bukhari", Chapter: 1, Verse: 1, Author: "Bukhari", Text: "Narrated Umar", ChapterName: "Revelation", Volume: &vol},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted %d rows, want 3", n)
	}

	ids, err := BookIDs(ctx, conn)
	if err != nil {
		t.Fatalf("book ids: %v", err)
	}
	if strings.Join(ids, ",") != "bukhari,en-pickthall" {
		t.Errorf("unexpected book ids %v", ids)
	}

	rows, err := SelectBookRows(ctx, conn, "en-pickthall")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0].Verse != 1 || rows[1].Verse != 2 {
		t.Errorf("unexpected rows %+v", rows)
	}

	var matches int
	if err := conn.GetContext(ctx, &matches, `SELECT count(*) FROM verse_fts WHERE verse_fts MATCH 'allah'`); err != nil {
		t.Fatalf("match: %v", err)
	}
	if matches != 2 {
		t.Errorf("expected 2 indexed matches, got %d", matches)
	}

	deleted, err := DeleteBook(ctx, conn, "en-pickthall")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d rows, want 2", deleted)
	}
	if err := conn.GetContext(ctx, &matches, `SELECT count(*) FROM verse_fts WHERE verse_fts MATCH 'allah'`); err != nil {
		t.Fatalf("match after delete: %v", err)
	}
	if matches != 0 {
		t.Errorf("expected index entries removed, got %d", matches)
	}
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Error("expected error for empty path")
	}
}
