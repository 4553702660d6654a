// Package session tracks the authenticated user across requests with a signed
// cookie. Identity lives in an HS256 JWT; logout revokes the token's JTI via a
// Redis blacklist so a stolen cookie dies with the session.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the session cookie holding the signed token.
	CookieName = "inkwell_session"

	issuer   = "inkwell"
	audience = "inkwell-web"

	// sessionTTL bounds a plain login; rememberTTL applies when the user asked
	// to stay signed in across browser restarts.
	sessionTTL  = 12 * time.Hour
	rememberTTL = 30 * 24 * time.Hour

	currentUserKey = "currentUser"
)

// Manager issues, verifies and revokes session tokens.
type Manager struct {
	secret string
	redis  *redis.Client
	users  repository.UserRepository
}

// NewManager creates a session manager. redis may be nil; revocation then only
// lasts until the token expires naturally.
func NewManager(secret string, rdb *redis.Client, users repository.UserRepository) *Manager {
	return &Manager{secret: secret, redis: rdb, users: users}
}

// Issue signs a token for the user and sets the session cookie. With remember
// the cookie persists for thirty days; otherwise it is a browser-session
// cookie backed by a shorter-lived token.
func (m *Manager) Issue(c *fiber.Ctx, user *models.User, remember bool) error {
	if m.secret == "" {
		return fmt.Errorf("session secret not configured")
	}

	ttl := sessionTTL
	if remember {
		ttl = rememberTTL
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"iss":      issuer,
		"aud":      audience,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secret))
	if err != nil {
		return err
	}

	cookie := &fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if remember {
		cookie.Expires = now.Add(ttl)
	}
	c.Cookie(cookie)
	return nil
}

// Clear ends the session: the token's JTI is blacklisted until its natural
// expiry and the cookie is expired.
func (m *Manager) Clear(c *fiber.Ctx) {
	if token := c.Cookies(CookieName); token != "" {
		if jti, exp, ok := m.parseForRevocation(token); ok && m.redis != nil {
			ttl := time.Until(exp)
			if ttl > 0 {
				m.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl)
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-time.Hour),
	})
}

// LoadUser resolves the session cookie to a User and stores it in locals and
// the request context. Invalid, expired or revoked tokens leave the request
// anonymous; guards decide whether that matters.
func (m *Manager) LoadUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(CookieName)
		if tokenString == "" {
			return c.Next()
		}

		userID, jti, ok := m.verify(tokenString)
		if !ok {
			return c.Next()
		}

		if jti != "" && m.redis != nil {
			blacklisted, err := m.redis.Exists(c.Context(), "blacklist:"+jti).Result()
			if err == nil && blacklisted > 0 {
				return c.Next()
			}
		}

		user, err := m.users.GetByID(c.Context(), userID)
		if err != nil {
			// Token for a row that no longer resolves; treat as anonymous.
			return c.Next()
		}

		c.Locals(currentUserKey, user)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// verify parses and validates the token, returning the user ID and JTI.
func (m *Manager) verify(tokenString string) (uint, string, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", false
	}
	if iss, issOk := claims["iss"].(string); !issOk || iss != issuer {
		return 0, "", false
	}
	if aud, audOk := claims["aud"].(string); !audOk || aud != audience {
		return 0, "", false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, "", false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, "", false
	}

	jti, _ := claims["jti"].(string)
	return uint(userID), jti, true
}

// parseForRevocation extracts JTI and expiry without requiring a valid token;
// an expired token has nothing worth blacklisting.
func (m *Manager) parseForRevocation(tokenString string) (string, time.Time, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return "", time.Time{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, false
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return "", time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, false
	}
	return jti, exp.Time, true
}

// CurrentUser returns the authenticated user for this request, or nil when anonymous.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserKey).(*models.User)
	return user
}

// RequireAuthenticated redirects anonymous requests to the login page,
// preserving the requested URL so login can return the user there.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
		}
		return c.Next()
	}
}

// AnonymousOnly sends already-authenticated users home instead of re-processing
// registration or login.
func AnonymousOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.Redirect("/", fiber.StatusFound)
		}
		return c.Next()
	}
}

// SafeNext validates a post-login redirect target: site-relative paths only,
// anything else falls back to home.
func SafeNext(raw string) string {
	if raw == "" {
		return "/"
	}
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}

// generateJTI creates a unique token identifier so a single session can be revoked.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
