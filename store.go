package folioengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// timeLayout keeps stored timestamps fixed-width so text ordering matches
// chronological ordering on both SQLite and Postgres.
const timeLayout = "2006-01-02T15:04:05.000000Z"

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store wraps a SQL database and provides the repositories for identities,
// contact submissions, portfolio items and blog posts.
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewStore opens the database named by dsn and runs schema migrations.
// postgres:// and postgresql:// URLs use pgx; anything else is treated as a
// SQLite file path.
func NewStore(dsn string) (*Store, error) {
	if isPostgresURL(dsn) {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		return newStore(db, dialectPostgres)
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers wait
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return newStore(db, dialectSQLite)
}

func newStore(db *sql.DB, d dialect) (*Store, error) {
	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS identities (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS contacts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    service TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS portfolio_items (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    category TEXT NOT NULL,
    image_url TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    image_url TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
}

func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timestamp returns a creation time strictly after the previous one handed
// out by this Store, so rows created in the same microsecond still list in
// insertion order.
func (s *Store) timestamp() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t, t.Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FindIdentity returns the identity with the exact username, or ErrNotFound.
func (s *Store) FindIdentity(ctx context.Context, username string) (Identity, error) {
	var id Identity
	var created string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, username, password_hash, created_at FROM identities WHERE username = ?`), username).
		Scan(&id.ID, &id.Username, &id.PasswordHash, &created)
	if err != nil {
		return Identity{}, err
	}
	id.CreatedAt = parseTime(created)
	return id, nil
}

// CreateIdentity inserts an identity. The username must not exist yet.
func (s *Store) CreateIdentity(ctx context.Context, username, passwordHash string) (Identity, error) {
	t, ts := s.timestamp()
	id := Identity{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    t,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO identities (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		id.ID, id.Username, id.PasswordHash, ts)
	if err != nil {
		return Identity{}, fmt.Errorf("create identity %q: %w", username, err)
	}
	return id, nil
}

// ListContacts returns every contact submission in creation order.
func (s *Store) ListContacts(ctx context.Context) ([]ContactSubmission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, service, message, created_at FROM contacts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []ContactSubmission{}
	for rows.Next() {
		var c ContactSubmission
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Service, &c.Message, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// CreateContact stores a contact submission as given; empty fields are kept
// empty rather than rejected.
func (s *Store) CreateContact(ctx context.Context, in ContactInput) (ContactSubmission, error) {
	t, ts := s.timestamp()
	c := ContactSubmission{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Service:   in.Service,
		Message:   in.Message,
		CreatedAt: t,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO contacts (id, name, email, service, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Email, c.Service, c.Message, ts)
	if err != nil {
		return ContactSubmission{}, err
	}
	return c, nil
}

// ListPortfolio returns every portfolio item in creation order.
func (s *Store) ListPortfolio(ctx context.Context) ([]PortfolioItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, category, image_url, created_at FROM portfolio_items ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []PortfolioItem{}
	for rows.Next() {
		var p PortfolioItem
		var created string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.ImageURL, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		items = append(items, p)
	}
	return items, rows.Err()
}

// CreatePortfolioItem stores a portfolio item with the given image URL.
func (s *Store) CreatePortfolioItem(ctx context.Context, in PortfolioInput, imageURL string) (PortfolioItem, error) {
	t, ts := s.timestamp()
	p := PortfolioItem{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		ImageURL:    imageURL,
		CreatedAt:   t,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO portfolio_items (id, title, description, category, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.Title, p.Description, p.Category, p.ImageURL, ts)
	if err != nil {
		return PortfolioItem{}, err
	}
	return p, nil
}

// ListBlogPosts returns every blog post in creation order.
func (s *Store) ListBlogPosts(ctx context.Context) ([]BlogPost, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, summary, image_url, content, created_at FROM blog_posts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []BlogPost{}
	for rows.Next() {
		var p BlogPost
		var created string
		if err := rows.Scan(&p.ID, &p.Title, &p.Summary, &p.ImageURL, &p.Content, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreateBlogPost stores a blog post with the given image URL.
func (s *Store) CreateBlogPost(ctx context.Context, in BlogInput, imageURL string) (BlogPost, error) {
	t, ts := s.timestamp()
	p := BlogPost{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Summary:   in.Summary,
		ImageURL:  imageURL,
		Content:   in.Content,
		CreatedAt: t,
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO blog_posts (id, title, summary, image_url, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.Title, p.Summary, p.ImageURL, p.Content, ts)
	if err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
