package server

import (
	"errors"
	"io"
	"mime/multipart"

	"inkwell/internal/forms"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

// AccountPage handles GET /account: the profile form pre-filled with the
// current values.
func (s *Server) AccountPage(c *fiber.Ctx) error {
	user := session.CurrentUser(c)
	return s.render(c, "account", fiber.Map{
		"Title": "Account",
		"Form": &forms.Result{Values: map[string]string{
			forms.FieldUsername: user.Username,
			forms.FieldEmail:    user.Email,
		}},
		"ImageURL": "/static/profile_pics/" + user.ImageFileOrDefault(),
	})
}

// AccountSubmit handles POST /account: username/email edit plus an optional
// avatar upload.
func (s *Server) AccountSubmit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := session.CurrentUser(c)

	values := formValues(c, forms.FieldUsername, forms.FieldEmail)
	fileHeader := uploadedFile(c, forms.FieldPicture)
	if fileHeader != nil {
		values[forms.FieldPicture] = fileHeader.Filename
	}

	result := forms.UpdateAccount(s.userRepo, user).Validate(ctx, values)

	rerender := func(res *forms.Result, flashMsg string) error {
		data := fiber.Map{
			"Title":    "Account",
			"Form":     res,
			"ImageURL": "/static/profile_pics/" + user.ImageFileOrDefault(),
		}
		if flashMsg != "" {
			data["Flash"] = flashMsg
			data["FlashCategory"] = "danger"
		}
		return s.render(c, "account", data)
	}

	if !result.Valid() {
		return rerender(result, "")
	}

	imageFile := ""
	if fileHeader != nil {
		name, err := s.savePictureUpload(fileHeader)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && models.HTTPStatus(err) == fiber.StatusBadRequest {
				result.Errors[forms.FieldPicture] = appErr.Message
				return rerender(result, "")
			}
			return err
		}
		imageFile = name
	}

	_, err := s.userService.UpdateAccount(ctx, user.ID,
		result.Get(forms.FieldUsername), result.Get(forms.FieldEmail), imageFile)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && models.HTTPStatus(err) == fiber.StatusBadRequest {
			return rerender(result, appErr.Message)
		}
		return err
	}

	middleware.Logger.InfoContext(ctx, "account updated", "user_id", user.ID)
	s.setFlash(c, "success", "Your account has been updated!")
	return c.Redirect("/account", fiber.StatusFound)
}

// uploadedFile returns the named multipart file, or nil when the field was
// left empty.
func uploadedFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Filename == "" {
		return nil
	}
	return fh
}

func (s *Server) savePictureUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return s.avatarService.SavePicture(fh.Filename, content)
}
