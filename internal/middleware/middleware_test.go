package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/config"
	"github.com/meit-app/meit/internal/utils"
)

func serve(h echo.HandlerFunc, mw echo.MiddlewareFunc, auth string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/x", h, mw)
	req := httptest.NewRequest(http.MethodGet, "/x?b=2&a=1", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", "ident-1", "ana@example.com", time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	var got Identity
	h := func(c echo.Context) error {
		got, _ = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	}
	rec := serve(h, JWTAuth("secret"), "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if got.ID != "ident-1" || got.Email != "ana@example.com" || got.AccessToken != tok.Token {
		t.Fatalf("identity = %+v", got)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	expired, _ := utils.NewAccessToken("secret", "ident-1", "", -time.Minute)
	other, _ := utils.NewAccessToken("other", "ident-1", "", time.Minute)
	called := false
	h := func(c echo.Context) error {
		called = true
		return nil
	}
	for name, auth := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"empty bearer": "Bearer  ",
		"expired":      "Bearer " + expired.Token,
		"wrong secret": "Bearer " + other.Token,
	} {
		if rec := serve(h, JWTAuth("secret"), auth); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: code = %d, want 401", name, rec.Code)
		}
	}
	if called {
		t.Fatal("handler ran without a valid token")
	}
}

func TestIdentityFromPublicRoute(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, ok := IdentityFrom(c); ok {
		t.Fatal("identity on unauthenticated context")
	}
	if got := currentIdentityID(c); got != "anon" {
		t.Fatalf("currentIdentityID = %q", got)
	}
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	limit := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil)
	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, nil)
	for i := 0; i < 3; i++ {
		if rec := serve(ok, limit, ""); rec.Code != http.StatusOK {
			t.Fatalf("limiter blocked request %d without redis", i)
		}
	}
	rec := serve(ok, cache, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("cache touched response without redis: %d %q", rec.Code, rec.Header().Get("X-Cache"))
	}
}

func TestCacheKeyStrategies(t *testing.T) {
	e := echo.New()
	ctx := func(target string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	}
	withQuery := config.CacheConfig{Prefix: "meit:cache", KeyStrategy: "route_query"}
	pathOnly := config.CacheConfig{Prefix: "meit:cache", KeyStrategy: "path"}

	if cacheKey(withQuery, ctx("/v1/public/locations/1?x=1")) == cacheKey(withQuery, ctx("/v1/public/locations/1?x=2")) {
		t.Fatal("route_query ignored the query")
	}
	if cacheKey(pathOnly, ctx("/v1/public/locations/1?x=1")) != cacheKey(pathOnly, ctx("/v1/public/locations/1?x=2")) {
		t.Fatal("path strategy kept the query")
	}
	if cacheKey(pathOnly, ctx("/v1/public/locations/1")) == cacheKey(pathOnly, ctx("/v1/public/locations/2")) {
		t.Fatal("different paths share a key")
	}
}

func TestRecorderDropsOversizedBodies(t *testing.T) {
	rec := &recorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
	_, _ = rec.Write([]byte("abc"))
	if rec.overflow || rec.buf.String() != "abc" {
		t.Fatalf("buffered %q overflow=%v", rec.buf.String(), rec.overflow)
	}
	_, _ = rec.Write([]byte("de"))
	if !rec.overflow || rec.buf.Len() != 0 {
		t.Fatalf("oversized body kept: %q", rec.buf.String())
	}
}
