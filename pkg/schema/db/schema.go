package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// VerseRow is the stored form of one translation of one verse
type VerseRow struct {
	ID          int64  `db:"id"`
	BookID      string `db:"book_id"`
	Chapter     int    `db:"chapter"`
	Verse       int    `db:"verse"`
	Author      string `db:"author"`
	Text        string `db:"text"`
	ChapterName string `db:"chapter_name"`
	Volume      *int   `db:"volume"`
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS verse_rows (
		id BIGSERIAL PRIMARY KEY,
		book_id TEXT NOT NULL,
		chapter INT NOT NULL CHECK (chapter >= 1),
		verse INT NOT NULL CHECK (verse >= 1),
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		chapter_name TEXT NOT NULL DEFAULT '',
		volume INT,
		text_simple tsvector GENERATED ALWAYS AS (to_tsvector('simple', text)) STORED,
		text_english tsvector GENERATED ALWAYS AS (to_tsvector('english', text)) STORED
	)`,
	`CREATE INDEX IF NOT EXISTS idx_verse_rows_simple ON verse_rows USING GIN (text_simple)`,
	`CREATE INDEX IF NOT EXISTS idx_verse_rows_english ON verse_rows USING GIN (text_english)`,
	`CREATE INDEX IF NOT EXISTS idx_verse_rows_coord ON verse_rows (chapter, verse)`,
	`CREATE INDEX IF NOT EXISTS idx_verse_rows_author ON verse_rows (author)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS verse_rows (
		id INTEGER PRIMARY KEY,
		book_id TEXT NOT NULL,
		chapter INTEGER NOT NULL CHECK (chapter >= 1),
		verse INTEGER NOT NULL CHECK (verse >= 1),
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		chapter_name TEXT NOT NULL DEFAULT '',
		volume INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_verse_rows_coord ON verse_rows (chapter, verse)`,
	`CREATE INDEX IF NOT EXISTS idx_verse_rows_author ON verse_rows (author)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS verse_fts USING fts5(
		text, content='verse_rows', content_rowid='id', tokenize='unicode61 remove_diacritics 2'
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS verse_fts_stem USING fts5(
		text, content='verse_rows', content_rowid='id', tokenize='porter unicode61 remove_diacritics 2'
	)`,
	`CREATE TRIGGER IF NOT EXISTS verse_rows_ai AFTER INSERT ON verse_rows BEGIN
		INSERT INTO verse_fts(rowid, text) VALUES (new.id, new.text);
		INSERT INTO verse_fts_stem(rowid, text) VALUES (new.id, new.text);
	END`,
	`CREATE TRIGGER IF NOT EXISTS verse_rows_ad AFTER DELETE ON verse_rows BEGIN
		INSERT INTO verse_fts(verse_fts, rowid, text) VALUES ('delete', old.id, old.text);
		INSERT INTO verse_fts_stem(verse_fts_stem, rowid, text) VALUES ('delete', old.id, old.text);
	END`,
}

// Migrate creates the verse corpus tables and text indexes for the connected dialect
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	var stmts []string
	switch conn.DriverName() {
	case "postgres":
		stmts = postgresSchema
	case SQLiteDriver:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported driver %q", conn.DriverName())
	}

	for i, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

// InsertVerseRows inserts rows in one batch statement
func InsertVerseRows(ctx context.Context, conn *sqlx.DB, rows []VerseRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	res, err := conn.NamedExecContext(ctx, `
		INSERT INTO verse_rows (book_id, chapter, verse, author, text, chapter_name, volume)
		VALUES (:book_id, :chapter, :verse, :author, :text, :chapter_name, :volume)
	`, rows)
	if err != nil {
		return 0, fmt.Errorf("insert verse rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert verse rows: %w", err)
	}
	return n, nil
}

// DeleteBook removes every row of a book so it can be re-ingested
func DeleteBook(ctx context.Context, conn *sqlx.DB, bookID string) (int64, error) {
	res, err := conn.ExecContext(ctx, conn.Rebind(`DELETE FROM verse_rows WHERE book_id = ?`), bookID)
	if err != nil {
		return 0, fmt.Errorf("delete book %s: %w", bookID, err)
	}
	return res.RowsAffected()
}

// SelectBookRows returns a book's rows in (chapter, verse) order
func SelectBookRows(ctx context.Context, conn *sqlx.DB, bookID string) ([]VerseRow, error) {
	var rows []VerseRow
	err := conn.SelectContext(ctx, &rows, conn.Rebind(`
		SELECT id, book_id, chapter, verse, author, text, chapter_name, volume
		FROM verse_rows
		WHERE book_id = ?
		ORDER BY chapter, verse, id
	`), bookID)
	if err != nil {
		return nil, fmt.Errorf("select book %s: %w", bookID, err)
	}
	return rows, nil
}

// BookIDs lists the distinct books in the corpus
func BookIDs(ctx context.Context, conn *sqlx.DB) ([]string, error) {
	var ids []string
	if err := conn.SelectContext(ctx, &ids, `SELECT DISTINCT book_id FROM verse_rows ORDER BY book_id`); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return ids, nil
}
