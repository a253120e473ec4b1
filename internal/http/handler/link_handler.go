package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/app/service"
	"github.com/FoldlyDev/foldly-server/internal/http/middleware"
	prommetrics "github.com/FoldlyDev/foldly-server/internal/infra/prometheus"
)

// LinkDeps groups dependencies required by dashboard handlers.
type LinkDeps struct {
	Logger       *zap.Logger
	Links        service.LinkService
	Availability *service.AvailabilityService
	Branding     *service.BrandingService
}

// LinkHandler implements the dashboard management API.
type LinkHandler struct {
	logger       *zap.Logger
	links        service.LinkService
	availability *service.AvailabilityService
	branding     *service.BrandingService
}

// NewLinkHandler creates a dashboard handler with the provided dependencies.
func NewLinkHandler(deps LinkDeps) *LinkHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		logger:       logger,
		links:        deps.Links,
		availability: deps.Availability,
		branding:     deps.Branding,
	}
}

// Register wires dashboard routes onto the provided (authenticated) router.
func (h *LinkHandler) Register(api fiber.Router) {
	links := api.Group("/links")
	{
		links.Post("/", h.CreateLink)
		links.Get("/", h.ListLinks)
		links.Post("/generate", h.GenerateLink)
		links.Delete("/", h.BulkDeleteLinks)
		links.Get("/:id", h.GetLink)
		links.Patch("/:id", h.UpdateLink)
		links.Patch("/:id/settings", h.UpdateLinkSettings)
		links.Post("/:id/toggle", h.ToggleLink)
		links.Post("/:id/duplicate", h.DuplicateLink)
		links.Delete("/:id/hard", h.HardDeleteLink)
		links.Delete("/:id", h.DeleteLink)
		links.Post("/:id/branding/logo", h.UploadLogo)
		links.Delete("/:id/branding/logo", h.RemoveLogo)
	}
}

// LinkResponse is the wire shape of a link on the dashboard API.
type LinkResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Slug        string `json:"slug"`
	Topic       string `json:"topic,omitempty"`
	LinkType    string `json:"link_type"`

	SourceFolderID *string `json:"source_folder_id,omitempty"`

	IsPublic        bool       `json:"is_public"`
	RequireEmail    bool       `json:"require_email"`
	RequirePassword bool       `json:"require_password"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsActive        bool       `json:"is_active"`

	MaxFiles         int      `json:"max_files"`
	MaxFileSizeBytes int64    `json:"max_file_size_bytes"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`

	BrandEnabled bool   `json:"brand_enabled"`
	BrandColor   string `json:"brand_color,omitempty"`
	BrandLogoURL string `json:"brand_logo_url,omitempty"`

	TotalUploads int64      `json:"total_uploads"`
	TotalFiles   int64      `json:"total_files"`
	TotalSize    int64      `json:"total_size"`
	LastUploadAt *time.Time `json:"last_upload_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toLinkResponse(link *model.Link) LinkResponse {
	return LinkResponse{
		ID:               link.ID,
		WorkspaceID:      link.WorkspaceID,
		Slug:             link.Slug,
		Topic:            link.Topic,
		LinkType:         link.LinkType,
		SourceFolderID:   link.SourceFolderID,
		IsPublic:         link.IsPublic,
		RequireEmail:     link.RequireEmail,
		RequirePassword:  link.RequirePassword,
		ExpiresAt:        link.ExpiresAt,
		IsActive:         link.IsActive,
		MaxFiles:         link.MaxFiles,
		MaxFileSizeBytes: link.MaxFileSizeBytes,
		AllowedFileTypes: link.AllowedTypes(),
		BrandEnabled:     link.BrandEnabled,
		BrandColor:       link.BrandColor,
		BrandLogoURL:     link.BrandLogoURL,
		TotalUploads:     link.TotalUploads,
		TotalFiles:       link.TotalFiles,
		TotalSize:        link.TotalSize,
		LastUploadAt:     link.LastUploadAt,
		CreatedAt:        link.CreatedAt,
		UpdatedAt:        link.UpdatedAt,
	}
}

func actorFrom(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Locals(middleware.LocalUserID).(string); ok {
		actor.UserID = v
	}
	if v, ok := c.Locals(middleware.LocalPlan).(string); ok {
		actor.Plan = v
	}
	return actor
}

func userCtx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	LinkType    string `json:"link_type"`
	WorkspaceID string `json:"workspace_id"`
	Slug        string `json:"slug,omitempty"`
	Topic       string `json:"topic,omitempty"`

	IsPublic        *bool      `json:"is_public,omitempty"`
	RequireEmail    bool       `json:"require_email,omitempty"`
	RequirePassword bool       `json:"require_password,omitempty"`
	Password        string     `json:"password,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`

	MaxFiles         int      `json:"max_files,omitempty"`
	MaxFileSizeBytes int64    `json:"max_file_size_bytes,omitempty"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`

	BrandEnabled bool   `json:"brand_enabled,omitempty"`
	BrandColor   string `json:"brand_color,omitempty"`
}

// CreateLink handles POST /api/links
func (h *LinkHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.LinkType == "" {
		req.LinkType = model.LinkTypeBase
	}
	if req.WorkspaceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "workspace_id is required",
		})
	}

	input := service.CreateLinkInput{
		LinkType:         req.LinkType,
		WorkspaceID:      req.WorkspaceID,
		Slug:             req.Slug,
		Topic:            req.Topic,
		IsPublic:         req.IsPublic == nil || *req.IsPublic,
		RequireEmail:     req.RequireEmail,
		RequirePassword:  req.RequirePassword,
		Password:         req.Password,
		ExpiresAt:        req.ExpiresAt,
		MaxFiles:         req.MaxFiles,
		MaxFileSizeBytes: req.MaxFileSizeBytes,
		AllowedFileTypes: req.AllowedFileTypes,
		BrandEnabled:     req.BrandEnabled,
		BrandColor:       req.BrandColor,
	}
	if input.MaxFiles <= 0 {
		input.MaxFiles = 100
	}
	if input.MaxFileSizeBytes <= 0 {
		input.MaxFileSizeBytes = 100 * 1024 * 1024
	}

	link, err := h.links.CreateLink(userCtx(c), actorFrom(c), input)
	if err != nil {
		return h.fail(c, "create", err)
	}

	prommetrics.LinkOperations.WithLabelValues("create", "ok").Inc()
	return c.Status(fiber.StatusCreated).JSON(toLinkResponse(link))
}

// ListLinks handles GET /api/links
func (h *LinkHandler) ListLinks(c *fiber.Ctx) error {
	limit := 50
	offset := 0

	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 200 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	links, err := h.links.ListLinks(userCtx(c), actorFrom(c), limit, offset)
	if err != nil {
		return h.fail(c, "list", err)
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = toLinkResponse(&links[i])
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// GetLink handles GET /api/links/:id
func (h *LinkHandler) GetLink(c *fiber.Ctx) error {
	link, err := h.links.GetLink(userCtx(c), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "get", err)
	}
	return c.JSON(toLinkResponse(link))
}

// UpdateLinkRequest represents the request body for the general update.
type UpdateLinkRequest struct {
	Slug      *string    `json:"slug,omitempty"`
	Topic     *string    `json:"topic,omitempty"`
	IsPublic  *bool      `json:"is_public,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateLink handles PATCH /api/links/:id
func (h *LinkHandler) UpdateLink(c *fiber.Ctx) error {
	var req UpdateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, err := h.links.UpdateLink(userCtx(c), actorFrom(c), c.Params("id"), service.UpdateLinkInput{
		Slug:      req.Slug,
		Topic:     req.Topic,
		IsPublic:  req.IsPublic,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return h.fail(c, "update", err)
	}

	prommetrics.LinkOperations.WithLabelValues("update", "ok").Inc()
	return c.JSON(toLinkResponse(link))
}

// UpdateSettingsRequest represents the settings form body.
type UpdateSettingsRequest struct {
	RequireEmail    *bool      `json:"require_email,omitempty"`
	RequirePassword *bool      `json:"require_password,omitempty"`
	Password        *string    `json:"password,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ClearExpiry     bool       `json:"clear_expiry,omitempty"`

	MaxFiles         *int     `json:"max_files,omitempty"`
	MaxFileSizeBytes *int64   `json:"max_file_size_bytes,omitempty"`
	AllowedFileTypes []string `json:"allowed_file_types"`

	BrandEnabled *bool   `json:"brand_enabled,omitempty"`
	BrandColor   *string `json:"brand_color,omitempty"`
}

// UpdateLinkSettings handles PATCH /api/links/:id/settings
func (h *LinkHandler) UpdateLinkSettings(c *fiber.Ctx) error {
	var req UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.MaxFiles != nil && *req.MaxFiles <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "max_files must be positive",
		})
	}
	if req.MaxFileSizeBytes != nil && *req.MaxFileSizeBytes <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "max_file_size_bytes must be positive",
		})
	}

	link, err := h.links.UpdateLinkSettings(userCtx(c), actorFrom(c), c.Params("id"), service.UpdateSettingsInput{
		RequireEmail:     req.RequireEmail,
		RequirePassword:  req.RequirePassword,
		Password:         req.Password,
		ExpiresAt:        req.ExpiresAt,
		ClearExpiry:      req.ClearExpiry,
		MaxFiles:         req.MaxFiles,
		MaxFileSizeBytes: req.MaxFileSizeBytes,
		AllowedFileTypes: req.AllowedFileTypes,
		HasFileTypes:     req.AllowedFileTypes != nil,
	})
	if err != nil {
		return h.fail(c, "update_settings", err)
	}

	prommetrics.LinkOperations.WithLabelValues("update_settings", "ok").Inc()
	return c.JSON(toLinkResponse(link))
}

// ToggleLink handles POST /api/links/:id/toggle
func (h *LinkHandler) ToggleLink(c *fiber.Ctx) error {
	link, err := h.links.ToggleLinkActive(userCtx(c), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "toggle", err)
	}

	prommetrics.LinkOperations.WithLabelValues("toggle", "ok").Inc()
	return c.JSON(toLinkResponse(link))
}

// DuplicateLink handles POST /api/links/:id/duplicate
func (h *LinkHandler) DuplicateLink(c *fiber.Ctx) error {
	link, err := h.links.DuplicateLink(userCtx(c), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "duplicate", err)
	}

	prommetrics.LinkOperations.WithLabelValues("duplicate", "ok").Inc()
	return c.Status(fiber.StatusCreated).JSON(toLinkResponse(link))
}

// DeleteLink handles DELETE /api/links/:id
func (h *LinkHandler) DeleteLink(c *fiber.Ctx) error {
	if err := h.links.DeleteLink(userCtx(c), actorFrom(c), c.Params("id")); err != nil {
		return h.fail(c, "delete", err)
	}

	prommetrics.LinkOperations.WithLabelValues("delete", "ok").Inc()
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkDeleteRequest carries the ids for a bulk soft delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteLinks handles DELETE /api/links
func (h *LinkHandler) BulkDeleteLinks(c *fiber.Ctx) error {
	var req BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ids is required",
		})
	}

	affected, err := h.links.BulkDeleteLinks(userCtx(c), actorFrom(c), req.IDs)
	if err != nil {
		return h.fail(c, "bulk_delete", err)
	}

	prommetrics.LinkOperations.WithLabelValues("bulk_delete", "ok").Inc()
	return c.JSON(fiber.Map{
		"deleted": affected,
	})
}

// HardDeleteLink handles DELETE /api/links/:id/hard
func (h *LinkHandler) HardDeleteLink(c *fiber.Ctx) error {
	if err := h.links.HardDeleteLink(userCtx(c), actorFrom(c), c.Params("id")); err != nil {
		return h.fail(c, "hard_delete", err)
	}

	prommetrics.LinkOperations.WithLabelValues("hard_delete", "ok").Inc()
	return c.SendStatus(fiber.StatusNoContent)
}

// GenerateLinkRequest carries the folder for a generated link.
type GenerateLinkRequest struct {
	FolderID string `json:"folder_id"`
}

// GenerateLink handles POST /api/links/generate
func (h *LinkHandler) GenerateLink(c *fiber.Ctx) error {
	var req GenerateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.FolderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "folder_id is required",
		})
	}

	link, err := h.links.GenerateLinkFromFolder(userCtx(c), actorFrom(c), req.FolderID)
	if err != nil {
		return h.fail(c, "generate", err)
	}

	prommetrics.LinkOperations.WithLabelValues("generate", "ok").Inc()
	return c.Status(fiber.StatusCreated).JSON(toLinkResponse(link))
}

// CheckSlug handles GET /api/slugs/check?slug=
func (h *LinkHandler) CheckSlug(c *fiber.Ctx) error {
	slug := c.Query("slug")
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "slug is required",
		})
	}

	result, err := h.availability.CheckSlug(userCtx(c), actorFrom(c), slug)
	if err != nil {
		return h.fail(c, "check_slug", err)
	}
	return c.JSON(result)
}

// CheckTopic handles GET /api/topics/check?slug=&topic=
func (h *LinkHandler) CheckTopic(c *fiber.Ctx) error {
	slug := c.Query("slug")
	topic := c.Query("topic")
	if slug == "" || topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "slug and topic are required",
		})
	}

	result, err := h.availability.CheckTopic(userCtx(c), slug, topic)
	if err != nil {
		return h.fail(c, "check_topic", err)
	}
	return c.JSON(result)
}

// UploadLogo handles POST /api/links/:id/branding/logo
func (h *LinkHandler) UploadLogo(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("logo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "logo file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read logo file",
		})
	}
	defer file.Close()

	link, err := h.branding.UploadLogo(
		userCtx(c), actorFrom(c), c.Params("id"),
		fileHeader.Filename,
		fileHeader.Header.Get(fiber.HeaderContentType),
		file, fileHeader.Size,
	)
	if err != nil {
		return h.fail(c, "upload_logo", err)
	}

	prommetrics.LinkOperations.WithLabelValues("upload_logo", "ok").Inc()
	return c.JSON(toLinkResponse(link))
}

// RemoveLogo handles DELETE /api/links/:id/branding/logo
func (h *LinkHandler) RemoveLogo(c *fiber.Ctx) error {
	link, err := h.branding.RemoveLogo(userCtx(c), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "remove_logo", err)
	}

	prommetrics.LinkOperations.WithLabelValues("remove_logo", "ok").Inc()
	return c.JSON(toLinkResponse(link))
}

// fail maps service errors onto HTTP statuses and records the outcome.
func (h *LinkHandler) fail(c *fiber.Ctx, op string, err error) error {
	prommetrics.LinkOperations.WithLabelValues(op, "error").Inc()

	switch {
	case errors.Is(err, repository.ErrLinkNotFound),
		errors.Is(err, repository.ErrFolderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	case errors.Is(err, service.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "unauthorized",
		})
	case errors.Is(err, service.ErrBaseLinkExists),
		errors.Is(err, repository.ErrSlugTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrSlugUnavailable),
		errors.Is(err, service.ErrBaseLinkMissing),
		errors.Is(err, service.ErrTopicRequired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.logger.Error("link operation failed", zap.String("operation", op), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
