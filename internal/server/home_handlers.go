package server

import (
	"github.com/gofiber/fiber/v2"
)

// Home handles GET / and GET /home: the paginated feed of all posts, newest
// first.
func (s *Server) Home(c *fiber.Ctx) error {
	feed, err := s.postService.HomeFeed(c.UserContext(), pageQuery(c))
	if err != nil {
		return err
	}
	return s.render(c, "home", fiber.Map{
		"Posts":      feed.Posts,
		"Pagination": feed,
	})
}

// About handles GET /about.
func (s *Server) About(c *fiber.Ctx) error {
	return s.render(c, "about", fiber.Map{
		"Title": "About",
	})
}

// Demo handles GET /demo: points visitors at the seeded demo accounts.
func (s *Server) Demo(c *fiber.Ctx) error {
	return s.render(c, "demo", fiber.Map{
		"Title": "Demo",
	})
}
