package folioengine

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type verifierFunc func(raw string) (*Claims, error)

func (f verifierFunc) Verify(raw string) (*Claims, error) { return f(raw) }

func TestRequireAuthAttachesClaims(t *testing.T) {
	want := &Claims{Username: "admin"}
	want.Subject = "id-1"
	var seen string
	mw := RequireAuth(verifierFunc(func(raw string) (*Claims, error) {
		seen = raw
		return want, nil
	}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc.def.ghi")
	c := e.NewContext(req, httptest.NewRecorder())

	err := mw(func(c echo.Context) error {
		got, ok := ClaimsFrom(c.Request().Context())
		if !ok || got != want {
			t.Errorf("ClaimsFrom = %v, %v", got, ok)
		}
		got, ok = EchoClaims(c)
		if !ok || got != want {
			t.Errorf("EchoClaims = %v, %v", got, ok)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("handler returned %v", err)
	}
	if seen != "abc.def.ghi" {
		t.Errorf("verifier saw %q, want the token without prefix", seen)
	}
}

func TestRequireAuthWrapsForeignErrors(t *testing.T) {
	mw := RequireAuth(verifierFunc(func(string) (*Claims, error) {
		return nil, errors.New("boom")
	}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "tok")
	c := e.NewContext(req, httptest.NewRecorder())

	err := mw(func(echo.Context) error {
		t.Fatal("next must not run")
		return nil
	})(c)
	if KindOf(err) != KindAuthInvalid {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindAuthInvalid)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindAuthMissing, http.StatusUnauthorized},
		{KindInvalidCredentials, http.StatusUnauthorized},
		{KindAuthInvalid, http.StatusBadRequest},
		{KindInvalidInput, http.StatusBadRequest},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindNotFound, http.StatusNotFound},
		{KindStorageFailure, http.StatusInternalServerError},
		{KindPersistenceFailure, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.kind); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
