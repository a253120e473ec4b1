package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/app/service"
	"github.com/FoldlyDev/foldly-server/internal/http/handler"
	"github.com/FoldlyDev/foldly-server/internal/http/middleware"
	"github.com/FoldlyDev/foldly-server/internal/http/util"
)

// grantTTL bounds how long a resolved visitor may hold an upload grant.
const grantTTL = 60 * time.Second

// Dependencies bundles everything the HTTP server needs to wire its routes.
type Dependencies struct {
	Logger       *zap.Logger
	Postgres     *pgxpool.Pool
	Redis        *redis.Client
	Users        repository.UserRepository
	Links        service.LinkService
	Availability *service.AvailabilityService
	Branding     *service.BrandingService
	Public       *service.PublicService
	JWTSecret    string
	JWTIssuer    string
	JWTExpiresIn time.Duration
	GrantSecret  []byte
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}

	authHandler := handler.NewAuthHandler(handler.AuthDeps{
		Logger:    s.deps.Logger,
		Users:     s.deps.Users,
		Secret:    s.deps.JWTSecret,
		Issuer:    s.deps.JWTIssuer,
		ExpiresIn: s.deps.JWTExpiresIn,
	})
	authHandler.Register(s.app)

	api := s.app.Group("/api", middleware.Auth(s.deps.JWTSecret))

	linkHandler := handler.NewLinkHandler(handler.LinkDeps{
		Logger:       s.deps.Logger,
		Links:        s.deps.Links,
		Availability: s.deps.Availability,
		Branding:     s.deps.Branding,
	})
	linkHandler.Register(api)

	// Availability checks fire per keystroke from the dashboard, so they get
	// their own tighter limiter.
	checkLimiter := func(c *fiber.Ctx) error { return c.Next() }
	if s.deps.Redis != nil {
		checkLimiter = middleware.RateLimit(s.deps.Redis, middleware.AvailabilityRateLimitConfig(), s.deps.Logger)
	}
	api.Get("/slugs/check", checkLimiter, linkHandler.CheckSlug)
	api.Get("/topics/check", checkLimiter, linkHandler.CheckTopic)

	publicHandler := handler.NewPublicHandler(handler.PublicDeps{
		Logger: s.deps.Logger,
		Public: s.deps.Public,
		Grants: util.NewGrantSigner(s.deps.GrantSecret, grantTTL),
		Pool:   s.deps.Postgres,
	})
	publicHandler.Register(s.app)
}
