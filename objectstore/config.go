// Package objectstore stores uploaded media and hands back public URLs.
// Two backends are provided: an S3-compatible bucket reached through the
// MinIO client, and a local directory for development.
package objectstore

import (
	"errors"
	"fmt"
	"strings"
)

// Config describes where media objects are written. When Endpoint is empty
// the local directory backend is used.
type Config struct {
	Endpoint  string `env:"ENDPOINT"`   // host[:port], no scheme
	AccessKey string `env:"ACCESS_KEY"` // account id / key id
	SecretKey string `env:"SECRET_KEY"`
	Region    string `env:"REGION"`
	Bucket    string `env:"BUCKET"`
	UseSSL    bool   `env:"USE_SSL"`

	// PublicURL is the base clients fetch objects from, e.g. a CDN in front
	// of the bucket. Defaults to the bucket URL on the endpoint.
	PublicURL string `env:"PUBLIC_URL"`

	// PublicRead applies an anonymous s3:GetObject policy to the bucket
	// when it is created.
	PublicRead bool `env:"PUBLIC_READ"`

	LocalDir string `env:"LOCAL_DIR"`
}

// Remote reports whether an S3-compatible endpoint is configured.
func (c Config) Remote() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Validate checks the remote settings. Local configs are always valid once
// defaults are applied.
func (c Config) Validate() error {
	if !c.Remote() {
		if strings.TrimSpace(c.LocalDir) == "" {
			return errors.New("objectstore: local dir is required when no endpoint is set")
		}
		return nil
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("objectstore: endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("objectstore: access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("objectstore: secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("objectstore: bucket is required")
	}
	return nil
}

// publicBase returns the URL prefix objects are served under.
func (c Config) publicBase() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.Endpoint + "/" + c.Bucket
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
