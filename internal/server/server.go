// Package server wires configuration, storage and services into the HTTP
// application and contains the page handlers.
package server

import (
	"context"
	"fmt"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const csrfContextKey = "csrf_token"

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	sessions       *session.Manager
	userService    *service.UserService
	postService    *service.PostService
	avatarService  *service.AvatarService
}

// NewServer creates a server instance, establishing the database and Redis
// connections itself.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	s := NewServerWithDeps(cfg, db, cache.GetClient())
	s.promMiddleware = middleware.InitMetrics("inkwell-web")
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding. Prometheus registration is left to
// the caller since collectors can only be registered once per process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	return &Server{
		config:        cfg,
		db:            db,
		redis:         redisClient,
		userRepo:      userRepo,
		postRepo:      postRepo,
		sessions:      session.NewManager(cfg.SessionSecret, redisClient, userRepo),
		userService:   service.NewUserService(userRepo, cfg.BcryptCost),
		postService:   service.NewPostService(postRepo),
		avatarService: service.NewAvatarService(cfg.StaticDir),
	}
}

// App builds the configured Fiber app on first use and returns it.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	engine := html.New(s.config.ViewsDir, ".html")

	app := fiber.New(fiber.Config{
		AppName:      "inkwell",
		Views:        engine,
		ViewsLayout:  "layout",
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).
				SendString("Too many requests, please try again later.")
		},
	}))

	// Anti-forgery token for form POSTs; templates embed the token as a hidden
	// field. Skipped under APP_ENV=test so flow tests can post forms directly.
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:" + csrfContextKey,
		ContextKey:     csrfContextKey,
		CookieName:     "inkwell_csrf",
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		CookieHTTPOnly: true,
		Expiration:     1 * time.Hour,
		Next: func(c *fiber.Ctx) bool {
			return s.config.Env == "test"
		},
	}))

	// Resolve the session cookie so every handler sees the current user.
	app.Use(s.sessions.LoadUser())
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Home)
	app.Get("/home", s.Home)
	app.Get("/about", s.About)
	app.Get("/demo", s.Demo)

	// Auth pages
	app.Get("/register", session.AnonymousOnly(), s.RegisterPage)
	app.Post("/register", session.AnonymousOnly(), middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.RegisterSubmit)
	app.Get("/login", session.AnonymousOnly(), s.LoginPage)
	app.Post("/login", session.AnonymousOnly(), middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.LoginSubmit)
	app.Get("/logout", s.Logout)

	// Profile
	app.Get("/account", session.RequireAuthenticated(), s.AccountPage)
	app.Post("/account", session.RequireAuthenticated(), s.AccountSubmit)

	// Posts; /post/new must be registered before the /post/:id routes
	app.Get("/post/new", session.RequireAuthenticated(), s.NewPostPage)
	app.Post("/post/new", session.RequireAuthenticated(), s.NewPostSubmit)
	app.Get("/post/:id", s.ShowPost)
	app.Get("/post/:id/update", session.RequireAuthenticated(), s.UpdatePostPage)
	app.Post("/post/:id/update", session.RequireAuthenticated(), s.UpdatePostSubmit)
	app.Post("/post/:id/delete", session.RequireAuthenticated(), s.DeletePost)

	app.Get("/user/:username", s.UserPosts)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/static", s.config.StaticDir)
}

// errorHandler renders the HTML error pages. Validation and auth failures are
// normally handled inline by the form handlers; anything that escapes to here
// gets the closest matching error page.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
	}

	view := "errors/500"
	switch status {
	case fiber.StatusNotFound:
		view = "errors/404"
	case fiber.StatusForbidden:
		view = "errors/403"
	default:
		if status < fiber.StatusInternalServerError {
			status = fiber.StatusInternalServerError
		}
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			"path", c.Path(), "error", err.Error())
	}

	renderErr := c.Status(status).Render(view, fiber.Map{
		"CurrentUser": session.CurrentUser(c),
	}, "layout")
	if renderErr != nil {
		// No template engine configured (or broken views); fall back to text.
		return c.Status(status).SendString(fmt.Sprintf("%d", status))
	}
	return nil
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server and closes its connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
