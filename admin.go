package folioengine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		a.Metrics.LoginAttempts.WithLabelValues("limited").Inc()
		return &Error{Kind: KindRateLimited, Message: "Too many login attempts. Try again later."}
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput("Malformed request body", err)
	}

	id, err := a.credentials.Verify(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if KindOf(err) == KindInvalidCredentials {
			a.loginLimiter.Record(ip)
			a.Metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			c.Logger().Warnf("failed login for %q from %s", req.Username, ip)
		} else {
			a.Metrics.LoginAttempts.WithLabelValues("error").Inc()
		}
		return err
	}

	token, err := a.Tokens.Issue(id)
	if err != nil {
		a.Metrics.LoginAttempts.WithLabelValues("error").Inc()
		return newError(KindInternal, "Failed to issue token", err)
	}
	a.loginLimiter.Reset(ip)
	a.Metrics.LoginAttempts.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// CreateAdmin hashes password and stores a new identity. Used by the CLI and
// by start-up bootstrap; there is no HTTP signup.
func (a *App) CreateAdmin(ctx context.Context, username, password string) (Identity, error) {
	if username == "" {
		return Identity{}, fmt.Errorf("username cannot be empty")
	}
	hash, err := HashPassword(password, a.Config.BcryptCost)
	if err != nil {
		return Identity{}, err
	}
	return a.Store.CreateIdentity(ctx, username, hash)
}

// bootstrapAdmin creates the configured admin identity if it does not exist.
func (a *App) bootstrapAdmin(ctx context.Context) error {
	if a.Config.AdminUsername == "" {
		return nil
	}
	_, err := a.Store.FindIdentity(ctx, a.Config.AdminUsername)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if _, err := a.CreateAdmin(ctx, a.Config.AdminUsername, a.Config.AdminPassword); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	a.Echo.Logger.Infof("created admin identity %q", a.Config.AdminUsername)
	return nil
}
