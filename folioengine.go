// Package folioengine is the content backend for a business website built
// with Go and Echo. It authenticates a single admin role with signed tokens,
// accepts public contact-form submissions, and serves and creates portfolio
// items and blog posts whose images are forwarded to object storage.
//
// Request flow on privileged routes is gate -> media ingestion -> repository:
// RequireAuth checks the token, Media stores the uploaded image and returns
// its URL, and Store inserts the record.
package folioengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/folioengine/objectstore"
)

// App is the central folioengine application. It wires together the store,
// object storage, token issuer, handlers and middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Store   *Store
	Media   *Media
	Tokens  *TokenIssuer
	Metrics *Metrics

	credentials  *Credentials
	loginLimiter *LoginLimiter
	objects      ObjectStore
	uploadsDir   string
	registry     *prometheus.Registry
	customRoutes []func(*App)
	initialized  bool
}

// New creates a new App with the given configuration. Nothing is opened
// until Init or Start.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true

	a := &App{
		Config: cfg,
		Echo:   e,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	return a
}

// Init opens the database and object store, creates the bootstrap admin and
// registers middleware and routes. Start calls it; tests call it directly
// and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("folioengine: %w", err)
	}
	a.Echo.Logger.SetLevel(parseLogLevel(a.Config.LogLevel))

	store, err := NewStore(a.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("folioengine: init store: %w", err)
	}
	a.Store = store

	if a.objects == nil {
		objects, err := a.newObjectStore(ctx)
		if err != nil {
			store.Close()
			return fmt.Errorf("folioengine: init object store: %w", err)
		}
		a.objects = objects
	}

	a.Metrics = NewMetrics(a.registry)
	a.Media = NewMedia(a.objects, &a.Config, a.Metrics)
	a.Tokens = NewTokenIssuer(a.Config.JWTSecret, a.Config.TokenIssuer, a.Config.TokenTTL)
	a.credentials = NewCredentials(a.Store, a.Config.BcryptCost)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)

	if err := a.bootstrapAdmin(ctx); err != nil {
		a.Close()
		return fmt.Errorf("folioengine: %w", err)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the app and serves HTTP until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Echo.Logger.Infof("folioengine listening on %s", a.Config.Addr)
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("folioengine: shutdown: %w", err)
	}
	return nil
}

func (a *App) newObjectStore(ctx context.Context) (ObjectStore, error) {
	cfg := a.Config.Storage
	if !cfg.Remote() {
		local, err := objectstore.NewLocal(cfg.LocalDir, BuildURL(a.Config.PublicURL, "uploads"))
		if err != nil {
			return nil, err
		}
		a.uploadsDir = local.Dir()
		return local, nil
	}

	m, err := objectstore.NewMinIO(cfg)
	if err != nil {
		return nil, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.EnsureBucket(ensureCtx); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.registry}))
	if a.uploadsDir != "" {
		e.Static("/uploads", a.uploadsDir)
	}

	auth := RequireAuth(a.Tokens)
	api := e.Group(a.Config.APIPrefix)

	api.POST("/auth/login", a.handleLogin)

	api.POST("/contact", a.handleContact, a.contactLimiter())
	api.GET("/contact", a.handleListContacts, auth)

	api.GET("/portfolio", a.handleListPortfolio)
	api.POST("/portfolio", a.handleCreatePortfolio, auth)

	api.GET("/blogs", a.handleListBlogs)
	api.POST("/blogs", a.handleCreateBlog, auth)
	api.GET("/blogs/feed.xml", a.handleFeed)
}

// Close releases the database and stops background work.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func parseLogLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
