package server

import (
	"errors"

	"inkwell/internal/forms"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	return s.render(c, "register", fiber.Map{
		"Title": "Register",
		"Form":  &forms.Result{},
	})
}

// RegisterSubmit handles POST /register: validate, create the account, then
// send the user to the login page.
func (s *Server) RegisterSubmit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	values := formValues(c,
		forms.FieldUsername, forms.FieldEmail,
		forms.FieldPassword, forms.FieldConfirmPassword)

	result := forms.Registration(s.userRepo).Validate(ctx, values)
	if !result.Valid() {
		return s.render(c, "register", fiber.Map{
			"Title": "Register",
			"Form":  result,
		})
	}

	_, err := s.userService.Register(ctx,
		result.Get(forms.FieldUsername),
		result.Get(forms.FieldEmail),
		result.Get(forms.FieldPassword))
	if err != nil {
		// Unique-constraint backstop: a concurrent submission claimed the name
		// between form validation and the insert.
		var appErr *models.AppError
		if errors.As(err, &appErr) && models.HTTPStatus(err) == fiber.StatusBadRequest {
			return s.render(c, "register", fiber.Map{
				"Title":         "Register",
				"Form":          result,
				"Flash":         appErr.Message,
				"FlashCategory": "danger",
			})
		}
		return err
	}

	middleware.Logger.InfoContext(ctx, "account created",
		"username", result.Get(forms.FieldUsername))
	s.setFlash(c, "success", "Your account has been created! You are now able to log in.")
	return c.Redirect("/login", fiber.StatusFound)
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.render(c, "login", fiber.Map{
		"Title": "Login",
		"Form":  &forms.Result{},
	})
}

// LoginSubmit handles POST /login. On success the user is returned to the
// page that sent them here, if the ?next= target is safe.
func (s *Server) LoginSubmit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	values := formValues(c, forms.FieldEmail, forms.FieldPassword, forms.FieldRemember)

	result := forms.Login().Validate(ctx, values)
	if !result.Valid() {
		return s.render(c, "login", fiber.Map{
			"Title": "Login",
			"Form":  result,
		})
	}

	user, err := s.userService.Authenticate(ctx,
		result.Get(forms.FieldEmail), result.Get(forms.FieldPassword))
	if err != nil {
		if models.HTTPStatus(err) == fiber.StatusUnauthorized {
			return s.render(c, "login", fiber.Map{
				"Title":         "Login",
				"Form":          result,
				"Flash":         "Login unsuccessful. Please check email and password.",
				"FlashCategory": "danger",
			})
		}
		return err
	}

	remember := result.Get(forms.FieldRemember) != ""
	if err := s.sessions.Issue(c, user, remember); err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "user logged in", "username", user.Username)
	return c.Redirect(session.SafeNext(c.Query("next")), fiber.StatusFound)
}

// Logout handles GET /logout: revoke the session and go home.
func (s *Server) Logout(c *fiber.Ctx) error {
	s.sessions.Clear(c)
	return c.Redirect("/", fiber.StatusFound)
}
