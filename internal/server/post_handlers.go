package server

import (
	"fmt"

	"inkwell/internal/forms"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

// NewPostPage handles GET /post/new.
func (s *Server) NewPostPage(c *fiber.Ctx) error {
	return s.render(c, "create_post", fiber.Map{
		"Title":  "New Post",
		"Legend": "New Post",
		"Form":   &forms.Result{},
	})
}

// NewPostSubmit handles POST /post/new.
func (s *Server) NewPostSubmit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := session.CurrentUser(c)

	values := formValues(c, forms.FieldTitle, forms.FieldContent)
	result := forms.Post().Validate(ctx, values)
	if !result.Valid() {
		return s.render(c, "create_post", fiber.Map{
			"Title":  "New Post",
			"Legend": "New Post",
			"Form":   result,
		})
	}

	post, err := s.postService.Create(ctx, user,
		result.Get(forms.FieldTitle), result.Get(forms.FieldContent))
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "post created", "post_id", post.ID)
	s.setFlash(c, "success", "Your post has been created!")
	return c.Redirect("/", fiber.StatusFound)
}

// ShowPost handles GET /post/:id.
func (s *Server) ShowPost(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return err
	}

	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return s.render(c, "post", fiber.Map{
		"Title": post.Title,
		"Post":  post,
	})
}

// UpdatePostPage handles GET /post/:id/update: the post form pre-filled,
// author only.
func (s *Server) UpdatePostPage(c *fiber.Ctx) error {
	id, err := parsePostID(c)
	if err != nil {
		return err
	}

	post, err := s.postService.GetOwned(c.UserContext(), session.CurrentUser(c).ID, id)
	if err != nil {
		return err
	}

	return s.render(c, "create_post", fiber.Map{
		"Title":  "Update Post",
		"Legend": "Update Post",
		"Form": &forms.Result{Values: map[string]string{
			forms.FieldTitle:   post.Title,
			forms.FieldContent: post.Content,
		}},
	})
}

// UpdatePostSubmit handles POST /post/:id/update.
func (s *Server) UpdatePostSubmit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parsePostID(c)
	if err != nil {
		return err
	}

	values := formValues(c, forms.FieldTitle, forms.FieldContent)
	result := forms.Post().Validate(ctx, values)
	if !result.Valid() {
		return s.render(c, "create_post", fiber.Map{
			"Title":  "Update Post",
			"Legend": "Update Post",
			"Form":   result,
		})
	}

	post, err := s.postService.Update(ctx, session.CurrentUser(c).ID, id,
		result.Get(forms.FieldTitle), result.Get(forms.FieldContent))
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "post updated", "post_id", post.ID)
	s.setFlash(c, "success", "Your post has been updated!")
	return c.Redirect(fmt.Sprintf("/post/%d", post.ID), fiber.StatusFound)
}

// DeletePost handles POST /post/:id/delete.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parsePostID(c)
	if err != nil {
		return err
	}

	if err := s.postService.Delete(ctx, session.CurrentUser(c).ID, id); err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", id)
	s.setFlash(c, "success", "Your post has been deleted!")
	return c.Redirect("/", fiber.StatusFound)
}

// UserPosts handles GET /user/:username: one author's posts, paginated.
func (s *Server) UserPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	username := c.Params("username")

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if author == nil {
		return models.NewNotFoundError("user", username)
	}

	feed, err := s.postService.AuthorFeed(ctx, author.ID, pageQuery(c))
	if err != nil {
		return err
	}

	return s.render(c, "user_posts", fiber.Map{
		"Title":      author.Username,
		"Author":     author,
		"Posts":      feed.Posts,
		"Pagination": feed,
	})
}
