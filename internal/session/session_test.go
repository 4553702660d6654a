package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-at-least-32-chars!!"

// stubUserRepo serves a fixed set of users by ID.
type stubUserRepo struct {
	users map[uint]*models.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *stubUserRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (s *stubUserRepo) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (s *stubUserRepo) Create(context.Context, *models.User) error { return nil }
func (s *stubUserRepo) Update(context.Context, *models.User) error { return nil }
func (s *stubUserRepo) List(context.Context, int, int) ([]models.User, error) {
	return nil, nil
}

func newTestApp(m *Manager) *fiber.App {
	app := fiber.New()
	app.Use(m.LoadUser())

	app.Get("/whoami", func(c *fiber.Ctx) error {
		if u := CurrentUser(c); u != nil {
			return c.SendString(u.Username)
		}
		return c.SendString("anonymous")
	})
	app.Get("/login-as/:remember", func(c *fiber.Ctx) error {
		remember := c.Params("remember") == "yes"
		if err := m.Issue(c, &models.User{ID: 1, Username: "corey"}, remember); err != nil {
			return err
		}
		return c.SendString("ok")
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		m.Clear(c)
		return c.SendString("bye")
	})
	app.Get("/account", RequireAuthenticated(), func(c *fiber.Ctx) error {
		return c.SendString("account")
	})
	app.Get("/register", AnonymousOnly(), func(c *fiber.Ctx) error {
		return c.SendString("register")
	})
	return app
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			return ck
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestIssueAndLoadUser(t *testing.T) {
	repo := &stubUserRepo{users: map[uint]*models.User{1: {ID: 1, Username: "corey"}}}
	m := NewManager(testSecret, nil, repo)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/no", nil))
	require.NoError(t, err)
	ck := sessionCookie(t, resp)
	assert.True(t, ck.Expires.IsZero(), "plain login should set a browser-session cookie")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(ck)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, "corey", body)
}

func TestIssueRememberSetsPersistentCookie(t *testing.T) {
	repo := &stubUserRepo{users: map[uint]*models.User{1: {ID: 1, Username: "corey"}}}
	m := NewManager(testSecret, nil, repo)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/yes", nil))
	require.NoError(t, err)
	ck := sessionCookie(t, resp)
	assert.False(t, ck.Expires.IsZero(), "remember-me should set an expiring cookie")
}

func TestTamperedTokenIsAnonymous(t *testing.T) {
	repo := &stubUserRepo{users: map[uint]*models.User{1: {ID: 1, Username: "corey"}}}
	m := NewManager(testSecret, nil, repo)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/no", nil))
	require.NoError(t, err)
	ck := sessionCookie(t, resp)
	ck.Value += "tampered"

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(ck)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", readBody(t, resp))
}

func TestClearRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := &stubUserRepo{users: map[uint]*models.User{1: {ID: 1, Username: "corey"}}}
	m := NewManager(testSecret, rdb, repo)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/no", nil))
	require.NoError(t, err)
	ck := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(ck)
	_, err = app.Test(req)
	require.NoError(t, err)

	// The original token must now be rejected even though its signature is valid.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(ck)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", readBody(t, resp))
}

func TestRequireAuthenticatedRedirectsWithNext(t *testing.T) {
	repo := &stubUserRepo{users: map[uint]*models.User{}}
	m := NewManager(testSecret, nil, repo)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/account", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Faccount", resp.Header.Get("Location"))
}

func TestAnonymousOnlyRedirectsAuthenticated(t *testing.T) {
	repo := &stubUserRepo{users: map[uint]*models.User{1: {ID: 1, Username: "corey"}}}
	m := NewManager(testSecret, nil, repo)
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/no", nil))
	require.NoError(t, err)
	ck := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	req.AddCookie(ck)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty falls back home", "", "/"},
		{"Relative path kept", "/account", "/account"},
		{"Escaped path decoded", "%2Faccount", "/account"},
		{"Absolute URL rejected", "https://evil.example/", "/"},
		{"Protocol-relative rejected", "//evil.example", "/"},
		{"Backslash trick rejected", "/\\evil.example", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeNext(tt.in))
		})
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return string(b)
}
