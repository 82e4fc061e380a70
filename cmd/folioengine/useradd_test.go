package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eringen/folioengine"
)

func TestReadPassword(t *testing.T) {
	t.Setenv("FOLIO_NEW_PASSWORD", "")

	got, err := readPassword(strings.NewReader("hunter2\r\nignored\n"))
	if err != nil {
		t.Fatalf("readPassword failed: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("readPassword = %q, want %q", got, "hunter2")
	}

	got, err = readPassword(strings.NewReader("no-newline"))
	if err != nil {
		t.Fatalf("readPassword without newline failed: %v", err)
	}
	if got != "no-newline" {
		t.Errorf("readPassword = %q, want %q", got, "no-newline")
	}

	if _, err := readPassword(strings.NewReader("\n")); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestReadPasswordFromEnv(t *testing.T) {
	t.Setenv("FOLIO_NEW_PASSWORD", "from-env")

	got, err := readPassword(strings.NewReader("from-stdin\n"))
	if err != nil {
		t.Fatalf("readPassword failed: %v", err)
	}
	if got != "from-env" {
		t.Errorf("readPassword = %q, want %q", got, "from-env")
	}
}

func TestRunUserAdd(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "folio.db")
	t.Setenv("FOLIO_DATABASE_URL", dsn)
	t.Setenv("FOLIO_BCRYPT_COST", "4")
	t.Setenv("FOLIO_NEW_PASSWORD", "")

	if err := runUserAdd("editor", strings.NewReader("pw\n")); err != nil {
		t.Fatalf("runUserAdd failed: %v", err)
	}
	if err := runUserAdd("editor", strings.NewReader("pw\n")); err == nil {
		t.Fatal("expected error for existing identity")
	}
	if err := runUserAdd("  ", strings.NewReader("pw\n")); err == nil {
		t.Fatal("expected error for blank username")
	}

	store, err := folioengine.NewStore(dsn)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()
	id, err := store.FindIdentity(context.Background(), "editor")
	if err != nil {
		t.Fatalf("FindIdentity failed: %v", err)
	}
	if id.PasswordHash == "" || id.PasswordHash == "pw" {
		t.Errorf("password not hashed: %q", id.PasswordHash)
	}
}

func TestDatabaseURL(t *testing.T) {
	if got := databaseURL(folioengine.Config{}); got != folioengine.DefaultDatabaseURL {
		t.Errorf("databaseURL(empty) = %q, want default", got)
	}
	if got := databaseURL(folioengine.Config{DatabaseURL: "x.db"}); got != "x.db" {
		t.Errorf("databaseURL = %q, want x.db", got)
	}
}
