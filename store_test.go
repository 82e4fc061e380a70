package folioengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test_folio.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestNewStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, err := s.CreateContact(context.Background(), ContactInput{Name: "Ann"}); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	contacts, err := s.ListContacts(context.Background())
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact after reopen, got %d", len(contacts))
	}
}

func TestListsEmpty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	contacts, err := s.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if contacts == nil || len(contacts) != 0 {
		t.Errorf("expected empty non-nil contacts, got %#v", contacts)
	}

	items, err := s.ListPortfolio(ctx)
	if err != nil {
		t.Fatalf("ListPortfolio failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil portfolio, got %#v", items)
	}

	posts, err := s.ListBlogPosts(ctx)
	if err != nil {
		t.Fatalf("ListBlogPosts failed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("expected empty non-nil posts, got %#v", posts)
	}
}

func TestCreateAndListContacts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := ContactInput{Name: "Ann", Email: "ann@example.com", Service: "Web", Message: "Hello"}
	got, err := s.CreateContact(ctx, in)
	if err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}
	if got.ID == "" {
		t.Error("ID should be assigned")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	// Empty fields are stored as given.
	if _, err := s.CreateContact(ctx, ContactInput{}); err != nil {
		t.Fatalf("CreateContact with empty fields failed: %v", err)
	}

	contacts, err := s.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	first := contacts[0]
	if first.ID != got.ID || first.Name != in.Name || first.Email != in.Email ||
		first.Service != in.Service || first.Message != in.Message {
		t.Errorf("first contact = %+v, want %+v", first, got)
	}
	if !first.CreatedAt.Equal(got.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, got.CreatedAt)
	}
	if contacts[1].Name != "" {
		t.Errorf("second contact Name = %q, want empty", contacts[1].Name)
	}
}

func TestListPortfolioCreationOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// A frozen clock must not reorder rows created in the same instant.
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	titles := []string{"Gamma", "Alpha", "Beta"}
	for _, title := range titles {
		in := PortfolioInput{Title: title, Description: "d", Category: "web"}
		if _, err := s.CreatePortfolioItem(ctx, in, "https://cdn.example.com/"+title+".png"); err != nil {
			t.Fatalf("CreatePortfolioItem(%s) failed: %v", title, err)
		}
	}

	items, err := s.ListPortfolio(ctx)
	if err != nil {
		t.Fatalf("ListPortfolio failed: %v", err)
	}
	if len(items) != len(titles) {
		t.Fatalf("expected %d items, got %d", len(titles), len(items))
	}
	for i, title := range titles {
		if items[i].Title != title {
			t.Errorf("items[%d].Title = %q, want %q", i, items[i].Title, title)
		}
		if items[i].ImageURL != "https://cdn.example.com/"+title+".png" {
			t.Errorf("items[%d].ImageURL = %q", i, items[i].ImageURL)
		}
	}
}

func TestCreateBlogPostDuplicates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	in := BlogInput{Title: "Same", Summary: "s", Content: "c"}
	a, err := s.CreateBlogPost(ctx, in, "")
	if err != nil {
		t.Fatalf("first CreateBlogPost failed: %v", err)
	}
	b, err := s.CreateBlogPost(ctx, in, "")
	if err != nil {
		t.Fatalf("second CreateBlogPost failed: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("duplicate posts should get distinct ids")
	}

	posts, err := s.ListBlogPosts(ctx)
	if err != nil {
		t.Fatalf("ListBlogPosts failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != a.ID || posts[1].ID != b.ID {
		t.Errorf("posts out of creation order: %s, %s", posts[0].ID, posts[1].ID)
	}
	if !posts[0].CreatedAt.Before(posts[1].CreatedAt) {
		t.Errorf("CreatedAt not increasing: %v, %v", posts[0].CreatedAt, posts[1].CreatedAt)
	}
}

func TestIdentityLookup(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.FindIdentity(ctx, "admin"); !IsNotFound(err) {
		t.Fatalf("FindIdentity on empty store: got %v, want not found", err)
	}

	created, err := s.CreateIdentity(ctx, "admin", "hash")
	if err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}

	got, err := s.FindIdentity(ctx, "admin")
	if err != nil {
		t.Fatalf("FindIdentity failed: %v", err)
	}
	if got.ID != created.ID || got.PasswordHash != "hash" {
		t.Errorf("FindIdentity = %+v, want %+v", got, created)
	}

	// Lookups are exact.
	if _, err := s.FindIdentity(ctx, "Admin"); !IsNotFound(err) {
		t.Errorf("FindIdentity(Admin): got %v, want not found", err)
	}
}

func TestCreateIdentityDuplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateIdentity(ctx, "admin", "hash"); err != nil {
		t.Fatalf("CreateIdentity failed: %v", err)
	}
	if _, err := s.CreateIdentity(ctx, "admin", "other"); err == nil {
		t.Fatal("expected error for duplicate username")
	}
}

func TestRebind(t *testing.T) {
	sqlite := &Store{dialect: dialectSQLite}
	pg := &Store{dialect: dialectPostgres}
	q := `INSERT INTO t (a, b, c) VALUES (?, ?, ?)`

	if got := sqlite.rebind(q); got != q {
		t.Errorf("sqlite rebind = %q, want unchanged", got)
	}
	want := `INSERT INTO t (a, b, c) VALUES ($1, $2, $3)`
	if got := pg.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestIsPostgresURL(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"postgres://u:p@localhost/folio", true},
		{"postgresql://localhost/folio", true},
		{"data/folio.db", false},
		{"file:folio.db?cache=shared", false},
	}
	for _, tt := range tests {
		if got := isPostgresURL(tt.dsn); got != tt.want {
			t.Errorf("isPostgresURL(%q) = %v, want %v", tt.dsn, got, tt.want)
		}
	}
}
