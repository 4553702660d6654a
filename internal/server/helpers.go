package server

import (
	"encoding/json"
	"net/url"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

const flashCookie = "inkwell_flash"

// flash is a one-shot notice carried across a redirect in a cookie: set on the
// POST, rendered and cleared on the next page load.
type flash struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

func (s *Server) setFlash(c *fiber.Ctx, category, message string) {
	payload, _ := json.Marshal(flash{Message: message, Category: category})
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(payload)),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) popFlash(c *fiber.Ctx) (flash, bool) {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return flash{}, false
	}

	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-time.Hour),
	})

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return flash{}, false
	}
	var f flash
	if err := json.Unmarshal([]byte(decoded), &f); err != nil {
		return flash{}, false
	}
	return f, f.Message != ""
}

// render draws a view inside the shared layout, injecting the data every page
// needs: the current user, any pending flash notice, and the CSRF token for
// forms. Handler-provided keys win over the injected ones.
func (s *Server) render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["CurrentUser"]; !ok {
		data["CurrentUser"] = session.CurrentUser(c)
	}
	if _, ok := data["Flash"]; !ok {
		if f, found := s.popFlash(c); found {
			data["Flash"] = f.Message
			data["FlashCategory"] = f.Category
		}
	}
	if token, ok := c.Locals(csrfContextKey).(string); ok {
		data["CSRFToken"] = token
	}
	return c.Render(view, data)
}

// pageQuery parses the ?page= query argument, defaulting to the first page.
func pageQuery(c *fiber.Ctx) int {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return page
}

// formValues collects the named fields from the submitted form.
func formValues(c *fiber.Ctx, fields ...string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f] = c.FormValue(f)
	}
	return values
}

// parsePostID extracts the :id route parameter. A non-numeric ID is
// indistinguishable from a missing post as far as the visitor is concerned.
func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError("post", c.Params("id"))
	}
	return uint(id), nil
}
