package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/app/service"
	"github.com/FoldlyDev/foldly-server/internal/http/util"
	prommetrics "github.com/FoldlyDev/foldly-server/internal/infra/prometheus"
)

const (
	// HeaderLinkPassword carries the visitor-supplied link password.
	HeaderLinkPassword = "X-Link-Password"
	// HeaderUploaderEmail carries the visitor-supplied uploader email.
	HeaderUploaderEmail = "X-Uploader-Email"
	// HeaderUploadGrant carries the grant issued by a successful resolve.
	HeaderUploadGrant = "X-Upload-Grant"
)

// PublicDeps groups dependencies for the unauthenticated upload-page API.
type PublicDeps struct {
	Logger *zap.Logger
	Public *service.PublicService
	Grants *util.GrantSigner
	Pool   *pgxpool.Pool
}

// PublicHandler serves link resolution and manifest acceptance for visitors.
type PublicHandler struct {
	logger *zap.Logger
	public *service.PublicService
	grants *util.GrantSigner
	pool   *pgxpool.Pool
}

// NewPublicHandler creates a public handler with the provided dependencies.
func NewPublicHandler(deps PublicDeps) *PublicHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicHandler{
		logger: logger,
		public: deps.Public,
		grants: deps.Grants,
		pool:   deps.Pool,
	}
}

// Register wires public routes onto the root router. Registered last so the
// catch-all slug routes do not shadow /api or /healthz.
func (h *PublicHandler) Register(app fiber.Router) {
	app.Get("/healthz", h.Health)
	app.Post("/:slug/uploads", h.AcceptUpload)
	app.Post("/:slug/:topic/uploads", h.AcceptUpload)
	app.Get("/:slug", h.Resolve)
	app.Get("/:slug/:topic", h.Resolve)
}

// PublicLinkResponse is the visitor-facing view of a link. Policy internals
// such as the password hash never leave the server.
type PublicLinkResponse struct {
	Slug     string `json:"slug"`
	Topic    string `json:"topic,omitempty"`
	LinkType string `json:"link_type"`

	RequireEmail    bool       `json:"require_email"`
	RequirePassword bool       `json:"require_password"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`

	MaxFiles         int      `json:"max_files"`
	MaxFileSizeBytes int64    `json:"max_file_size_bytes"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`

	BrandEnabled bool   `json:"brand_enabled"`
	BrandColor   string `json:"brand_color,omitempty"`
	BrandLogoURL string `json:"brand_logo_url,omitempty"`

	UploadGrant string `json:"upload_grant,omitempty"`
}

func toPublicResponse(link *model.Link, grant string) PublicLinkResponse {
	return PublicLinkResponse{
		Slug:             link.Slug,
		Topic:            link.Topic,
		LinkType:         link.LinkType,
		RequireEmail:     link.RequireEmail,
		RequirePassword:  link.RequirePassword,
		ExpiresAt:        link.ExpiresAt,
		MaxFiles:         link.MaxFiles,
		MaxFileSizeBytes: link.MaxFileSizeBytes,
		AllowedFileTypes: link.AllowedTypes(),
		BrandEnabled:     link.BrandEnabled,
		BrandColor:       link.BrandColor,
		BrandLogoURL:     link.BrandLogoURL,
		UploadGrant:      grant,
	}
}

// Resolve handles GET /:slug and GET /:slug/:topic
func (h *PublicHandler) Resolve(c *fiber.Ctx) error {
	link, err := h.public.Resolve(userCtx(c), service.ResolveInput{
		Slug:     c.Params("slug"),
		Topic:    c.Params("topic"),
		Password: c.Get(HeaderLinkPassword),
		Email:    c.Get(HeaderUploaderEmail),
	})
	if err != nil {
		return h.fail(c, err)
	}

	grant, err := h.grants.Issue(link.Slug, link.Topic)
	if err != nil {
		h.logger.Error("failed to issue upload grant", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	prommetrics.PublicResolves.WithLabelValues("ok").Inc()
	return c.JSON(toPublicResponse(link, grant))
}

// UploadRequest is the declared manifest posted by a visitor.
type UploadRequest struct {
	Files []service.UploadFile `json:"files"`
}

// AcceptUpload handles POST /:slug/uploads and POST /:slug/:topic/uploads
func (h *PublicHandler) AcceptUpload(c *fiber.Ctx) error {
	slug := service.NormalizeSlug(c.Params("slug"))
	topic := service.NormalizeSlug(c.Params("topic"))

	if err := h.grants.Validate(slug, topic, c.Get(HeaderUploadGrant)); err != nil {
		prommetrics.PublicResolves.WithLabelValues("bad_grant").Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid or expired upload grant",
		})
	}

	var req UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(req.Files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "files is required",
		})
	}

	accepted, err := h.public.AcceptUpload(userCtx(c), slug, topic, c.Get(HeaderUploaderEmail), req.Files)
	if err != nil {
		return h.fail(c, err)
	}

	prommetrics.UploadBatches.Inc()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted": accepted,
	})
}

// Health handles GET /healthz with a database round trip.
func (h *PublicHandler) Health(c *fiber.Ctx) error {
	if h.pool != nil {
		if err := h.pool.Ping(userCtx(c)); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  "database unreachable",
			})
		}
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// fail maps public service errors onto HTTP statuses.
func (h *PublicHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrLinkNotFound),
		errors.Is(err, service.ErrLinkPrivate):
		// Private links are indistinguishable from missing ones.
		prommetrics.PublicResolves.WithLabelValues("not_found").Inc()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	case errors.Is(err, service.ErrLinkInactive),
		errors.Is(err, service.ErrLinkExpired):
		prommetrics.PublicResolves.WithLabelValues("gone").Inc()
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrPasswordIncorrect):
		prommetrics.PublicResolves.WithLabelValues("unauthorized").Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrEmailRequired):
		prommetrics.PublicResolves.WithLabelValues("unauthorized").Inc()
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, service.ErrTypeNotAllowed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.logger.Error("public request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
