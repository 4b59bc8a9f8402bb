// Package database opens the board's SQL store and creates its schema.
// Queries are written with ? placeholders and rebound for Postgres.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// DB is a *sql.DB that knows its placeholder dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the store selected by storageType ("postgres" or "sqlite").
func Open(storageType, dsn, path string) (*DB, error) {
	switch storageType {
	case "postgres":
		return OpenPostgres(dsn)
	case "sqlite":
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unsupported storage type: %s", storageType)
}

func OpenPostgres(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &DB{DB: db, Dialect: Postgres}, nil
}

// OpenSQLite opens a SQLite file, or a private in-memory database for ":memory:".
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return &DB{DB: db, Dialect: SQLite}, nil
}

// Rebind rewrites ? placeholders into the dialect's form.
func (db *DB) Rebind(query string) string {
	if db.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			profile_image_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
	{"posts", `
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			author TEXT NOT NULL,
			author_id TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			visibility TEXT NOT NULL DEFAULT 'PUBLIC',
			status TEXT NOT NULL DEFAULT 'PUBLISHED',
			view_count INTEGER NOT NULL DEFAULT 0,
			like_count INTEGER NOT NULL DEFAULT 0,
			comment_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
	{"likes", `
		CREATE TABLE IF NOT EXISTS likes (
			post_id TEXT NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (post_id, user_id)
		)`},
	{"comments", `
		CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
			author TEXT NOT NULL,
			author_id TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`},
	{"activity_logs", `
		CREATE TABLE IF NOT EXISTS activity_logs (
			action TEXT NOT NULL,
			post_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_posts_category ON posts (category)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments (post_id)`,
}

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate() error {
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			log.Printf("Error creating '%s' table: %v", t.name, err)
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	for _, ddl := range indexes {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	log.Printf("Schema ready (%s)", db.Dialect)
	return nil
}
