package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eringen/folioengine"
)

// readPassword takes the password from FOLIO_NEW_PASSWORD, falling back to
// the first line of r.
func readPassword(r io.Reader) (string, error) {
	if p := os.Getenv("FOLIO_NEW_PASSWORD"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	p := strings.TrimRight(line, "\r\n")
	if p == "" {
		return "", errors.New("empty password")
	}
	return p, nil
}

func runUserAdd(username string, stdin io.Reader) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}
	password, err := readPassword(stdin)
	if err != nil {
		return err
	}

	cfg, err := folioengine.ConfigFromEnv()
	if err != nil {
		return err
	}
	store, err := folioengine.NewStore(databaseURL(cfg))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.FindIdentity(ctx, username); err == nil {
		return fmt.Errorf("identity %q already exists", username)
	} else if !folioengine.IsNotFound(err) {
		return fmt.Errorf("lookup identity: %w", err)
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = folioengine.DefaultBcryptCost
	}
	hash, err := folioengine.HashPassword(password, cost)
	if err != nil {
		return err
	}
	id, err := store.CreateIdentity(ctx, username, hash)
	if err != nil {
		return err
	}
	fmt.Printf("Created admin %q (id %s)\n", id.Username, id.ID)
	return nil
}

func databaseURL(cfg folioengine.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return folioengine.DefaultDatabaseURL
}
