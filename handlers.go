package folioengine

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleContact(c echo.Context) error {
	var in ContactInput
	if err := c.Bind(&in); err != nil {
		return invalidInput("Malformed request body", err)
	}
	contact, err := a.Store.CreateContact(c.Request().Context(), in)
	if err != nil {
		return persistenceFailure("Failed to save message", err)
	}
	a.Metrics.RecordsCreated.WithLabelValues("contact").Inc()
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Message received",
		"contact": contact,
	})
}

func (a *App) handleListContacts(c echo.Context) error {
	contacts, err := a.Store.ListContacts(c.Request().Context())
	if err != nil {
		return persistenceFailure("Failed to load messages", err)
	}
	return c.JSON(http.StatusOK, contacts)
}

func (a *App) handleListPortfolio(c echo.Context) error {
	items, err := a.Store.ListPortfolio(c.Request().Context())
	if err != nil {
		return persistenceFailure("Failed to load portfolio", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (a *App) handleCreatePortfolio(c echo.Context) error {
	var in PortfolioInput
	if err := c.Bind(&in); err != nil {
		return invalidInput("Malformed request body", err)
	}
	return createWithImage(a, c, "portfolio", func(ctx context.Context, imageURL string) (PortfolioItem, error) {
		return a.Store.CreatePortfolioItem(ctx, in, imageURL)
	})
}

func (a *App) handleListBlogs(c echo.Context) error {
	posts, err := a.Store.ListBlogPosts(c.Request().Context())
	if err != nil {
		return persistenceFailure("Failed to load blog posts", err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleCreateBlog(c echo.Context) error {
	var in BlogInput
	if err := c.Bind(&in); err != nil {
		return invalidInput("Malformed request body", err)
	}
	return createWithImage(a, c, "blog", func(ctx context.Context, imageURL string) (BlogPost, error) {
		return a.Store.CreateBlogPost(ctx, in, imageURL)
	})
}

// createWithImage runs the stages that follow the auth gate on upload routes:
// ingest the image, then persist the record. A failed stage ends the request
// and later stages do not run. An image stored before a failed persist is
// left in the object store.
func createWithImage[T any](a *App, c echo.Context, kind string, persist func(ctx context.Context, imageURL string) (T, error)) error {
	imageURL, err := a.Media.FromRequest(c)
	if err != nil {
		return err
	}

	record, err := persist(c.Request().Context(), imageURL)
	if err != nil {
		if imageURL != "" {
			c.Logger().Warnf("%s record not saved, orphaned object %s", kind, imageURL)
		}
		return persistenceFailure("Failed to save "+kind, err)
	}
	a.Metrics.RecordsCreated.WithLabelValues(kind).Inc()
	return c.JSON(http.StatusCreated, record)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.ListBlogPosts(c.Request().Context())
	if err != nil {
		return persistenceFailure("Failed to load blog posts", err)
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		return persistenceFailure("Database unavailable", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
