// Package store persists pattern and navigation posts in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pattern-editor/pkg/models"
)

// ErrNotFound is returned when a post lookup misses.
var ErrNotFound = errors.New("post not found")

// Store manages the editor database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_type TEXT NOT NULL,
		slug TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_type_slug ON posts(post_type, slug);

	CREATE TABLE IF NOT EXISTS categories (
		slug TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`

	_, err := s.db.Exec(schema)
	return err
}

const postColumns = `id, post_type, slug, title, content, status, category, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Type, &p.Slug, &p.Title, &p.Content, &p.Status, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a post and fills in its id and timestamps.
func (s *Store) Create(ctx context.Context, p *models.Post) error {
	if p.Type == "" {
		p.Type = models.PostTypePattern
	}
	if p.Status == "" {
		p.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (post_type, slug, title, content, status, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Type, p.Slug, p.Title, p.Content, p.Status, p.Category, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert post %q: %w", p.Slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert post %q: %w", p.Slug, err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// Update overwrites every mutable field of an existing post.
func (s *Store) Update(ctx context.Context, p *models.Post) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET slug = ?, title = ?, content = ?, status = ?, category = ?, updated_at = ?
		 WHERE id = ?`,
		p.Slug, p.Title, p.Content, p.Status, p.Category, now, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update post %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update post %d: %w", p.ID, ErrNotFound)
	}
	p.UpdatedAt = now
	return nil
}

// Get returns the post with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return p, nil
}

// GetBySlug returns the first post of postType with the given slug.
func (s *Store) GetBySlug(ctx context.Context, postType, slug string) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE post_type = ? AND slug = ? ORDER BY id LIMIT 1`,
		postType, slug,
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %q: %w", slug, err)
	}
	return p, nil
}

// ListOptions filters List.
type ListOptions struct {
	Type string
	// Status filters on one status. Empty lists every status except trash.
	Status  string
	OrderBy string // "title" or "id"
	Desc    bool
}

// List returns posts matching opts.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	var (
		where []string
		args  []any
	)
	if opts.Type != "" {
		where = append(where, "post_type = ?")
		args = append(args, opts.Type)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	} else {
		where = append(where, "status != ?")
		args = append(args, models.StatusTrash)
	}

	order := "id"
	if opts.OrderBy == "title" {
		order = "title COLLATE NOCASE"
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order + ` ` + dir + `, id ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// DeleteAll removes every post of postType and returns how many were deleted.
func (s *Store) DeleteAll(ctx context.Context, postType string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE post_type = ?`, postType)
	if err != nil {
		return 0, fmt.Errorf("delete %s posts: %w", postType, err)
	}
	return res.RowsAffected()
}

// EnsureCategory creates the category term if it does not exist yet.
func (s *Store) EnsureCategory(ctx context.Context, c models.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (slug, name) VALUES (?, ?) ON CONFLICT(slug) DO NOTHING`,
		c.Slug, c.Name,
	)
	if err != nil {
		return fmt.Errorf("ensure category %q: %w", c.Slug, err)
	}
	return nil
}

// Categories lists every category term ordered by slug.
func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, name FROM categories ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Slug, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
