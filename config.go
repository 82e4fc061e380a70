package folioengine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/folioengine/objectstore"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultDatabaseURL = "data/folio.db"
	DefaultBcryptCost  = bcrypt.DefaultCost

	DefaultMaxImagePixels = 40_000_000
)

// Config holds all configuration for a folioengine server. It is built once at
// start-up and passed by reference to the components that need it.
type Config struct {
	Addr      string `env:"FOLIO_ADDR"`       // Listen address (default ":5000")
	APIPrefix string `env:"FOLIO_API_PREFIX"` // Route prefix (default "/api")
	LogLevel  string `env:"FOLIO_LOG_LEVEL"`  // debug, info, warn, error (default info)

	SiteName        string `env:"FOLIO_SITE_NAME"`        // Feed title (default "Blog")
	SiteURL         string `env:"FOLIO_SITE_URL"`         // Public site, used for feed links
	SiteDescription string `env:"FOLIO_SITE_DESCRIPTION"` // Feed description
	PublicURL       string `env:"FOLIO_PUBLIC_URL"`       // This server's base URL (default "http://localhost:5000")

	DatabaseURL string `env:"FOLIO_DATABASE_URL"` // SQLite path or postgres:// URL (default "data/folio.db")

	JWTSecret   string        `env:"FOLIO_JWT_SECRET"`   // Required: token signing secret
	TokenIssuer string        `env:"FOLIO_TOKEN_ISSUER"` // default "folioengine"
	TokenTTL    time.Duration `env:"FOLIO_TOKEN_TTL"`    // 0 = tokens never expire
	BcryptCost  int           `env:"FOLIO_BCRYPT_COST"`  // default bcrypt.DefaultCost

	AdminUsername string `env:"FOLIO_ADMIN_USERNAME"` // Created at start-up when absent
	AdminPassword string `env:"FOLIO_ADMIN_PASSWORD"`

	CORSOrigins []string `env:"FOLIO_CORS_ORIGINS" envSeparator:","` // default "*"

	MediaFolder   string `env:"FOLIO_MEDIA_FOLDER"`    // Object key prefix (default "folio")
	MaxUploadSize int64  `env:"FOLIO_MAX_UPLOAD_SIZE"` // Bytes (default 10MB)
	MaxImageWidth int    `env:"FOLIO_MAX_IMAGE_WIDTH"` // Downscale wider images; negative disables (default 1600)
	RequireImage  bool   `env:"FOLIO_REQUIRE_IMAGE"`   // Reject portfolio/blog creates without a file

	// MaxImagePixels caps width*height as declared in the image header, so a
	// small compressed file cannot expand into a huge decode. Negative
	// disables (default 40 MP).
	MaxImagePixels int64 `env:"FOLIO_MAX_IMAGE_PIXELS"`

	LoginMaxAttempts int           `env:"FOLIO_LOGIN_MAX_ATTEMPTS"` // default 5
	LoginWindow      time.Duration `env:"FOLIO_LOGIN_WINDOW"`       // default 1m
	ContactRate      float64       `env:"FOLIO_CONTACT_RATE"`       // Submissions per second per IP (default 0.1)
	ContactBurst     int           `env:"FOLIO_CONTACT_BURST"`      // default 5

	Storage objectstore.Config `envPrefix:"FOLIO_STORAGE_"`
}

// ConfigFromEnv parses a Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.APIPrefix == "" {
		c.APIPrefix = "/api"
	}
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SiteName == "" {
		c.SiteName = "Blog"
	}
	if c.PublicURL == "" {
		if strings.HasPrefix(c.Addr, ":") {
			c.PublicURL = "http://localhost" + c.Addr
		} else {
			c.PublicURL = "http://" + c.Addr
		}
	}
	if c.SiteURL == "" {
		c.SiteURL = c.PublicURL
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = DefaultDatabaseURL
	}
	if c.TokenIssuer == "" {
		c.TokenIssuer = "folioengine"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = DefaultBcryptCost
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.MediaFolder == "" {
		c.MediaFolder = "folio"
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 10 << 20
	}
	if c.MaxImageWidth == 0 {
		c.MaxImageWidth = 1600
	}
	if c.MaxImagePixels == 0 {
		c.MaxImagePixels = DefaultMaxImagePixels
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.ContactRate == 0 {
		c.ContactRate = 0.1
	}
	if c.ContactBurst == 0 {
		c.ContactBurst = 5
	}
	if !c.Storage.Remote() && c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "public/uploads"
	}
}

// Validate reports configuration that would leave the server unusable.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWTSecret is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("AdminUsername and AdminPassword must be set together")
	}
	if c.TokenTTL < 0 {
		return errors.New("TokenTTL must be >= 0")
	}
	if c.MaxUploadSize < 0 {
		return errors.New("MaxUploadSize must be positive")
	}
	if c.LoginMaxAttempts < 0 {
		return errors.New("LoginMaxAttempts must be >= 0")
	}
	if c.ContactBurst < 0 {
		return errors.New("ContactBurst must be >= 0")
	}
	if c.ContactRate < 0 {
		return errors.New("ContactRate must be >= 0")
	}
	return c.Storage.Validate()
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithObjectStore replaces the object store built from Config.Storage.
func WithObjectStore(s ObjectStore) Option {
	return func(a *App) {
		a.objects = s
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on
// (default: a fresh registry per App).
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
	}
}
