package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServer builds a server against in-memory sqlite and miniredis, with
// the real view templates. Prometheus registration is skipped: collectors can
// only be registered once per process.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Port:          "0",
		Env:           "test",
		DBDriver:      "sqlite",
		SessionSecret: "test-secret-0123456789abcdef0123",
		BcryptCost:    4,
		StaticDir:     t.TempDir(),
		ViewsDir:      "../../web/views",
	}

	s := NewServerWithDeps(cfg, db, rdb)
	return s, s.App()
}

func getPage(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// responseCookies returns the non-expired cookies set by a response.
func responseCookies(resp *http.Response) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range resp.Cookies() {
		if c.Value != "" {
			out = append(out, c)
		}
	}
	return out
}

// registerAndLogin creates an account through the real endpoints and returns
// the session cookies for subsequent requests.
func registerAndLogin(t *testing.T, app *fiber.App, username, email, password string) []*http.Cookie {
	t.Helper()

	resp := postForm(t, app, "/register", url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode, "registration should redirect")
	_ = resp.Body.Close()

	resp = postForm(t, app, "/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode, "login should redirect")
	_ = resp.Body.Close()

	cookies := responseCookies(resp)
	require.NotEmpty(t, cookies, "login should set a session cookie")
	return cookies
}

func TestPageQuery(t *testing.T) {
	tests := []struct {
		query string
		page  int
	}{
		{"", 1},
		{"?page=3", 3},
		{"?page=0", 1},
		{"?page=-2", 1},
		{"?page=junk", 1},
	}
	for _, tt := range tests {
		app := fiber.New()
		var got int
		app.Get("/feed", func(c *fiber.Ctx) error {
			got = pageQuery(c)
			return nil
		})
		req := httptest.NewRequest(http.MethodGet, "/feed"+tt.query, nil)
		_, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.page, got, "query %q", tt.query)
	}
}

func TestFlashRoundTrip(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		s.setFlash(c, "success", "It worked!")
		return c.SendString("ok")
	})
	app.Get("/pop", func(c *fiber.Ctx) error {
		f, ok := s.popFlash(c)
		if !ok {
			return c.SendString("none")
		}
		return c.SendString(f.Category + ":" + f.Message)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	require.NoError(t, err)
	cookies := responseCookies(resp)
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/pop", nil)
	req.AddCookie(cookies[0])
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "success:It worked!", readBody(t, resp))

	// Popping clears the cookie.
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == flashCookie && c.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared, "pop should expire the flash cookie")

	// No cookie, no flash.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/pop", nil))
	require.NoError(t, err)
	assert.Equal(t, "none", readBody(t, resp))
}

func TestFlashIgnoresGarbageCookie(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/pop", func(c *fiber.Ctx) error {
		_, ok := s.popFlash(c)
		if ok {
			return c.SendString("flash")
		}
		return c.SendString("none")
	})

	req := httptest.NewRequest(http.MethodGet, "/pop", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: "not-json"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "none", readBody(t, resp))
}
