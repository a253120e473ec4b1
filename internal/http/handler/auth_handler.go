package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/auth"
)

// AuthDeps groups dependencies for account registration and login.
type AuthDeps struct {
	Logger    *zap.Logger
	Users     repository.UserRepository
	Secret    string
	Issuer    string
	ExpiresIn time.Duration
}

// AuthHandler issues the dashboard tokens the /api group requires.
type AuthHandler struct {
	logger    *zap.Logger
	users     repository.UserRepository
	secret    string
	issuer    string
	expiresIn time.Duration
}

// NewAuthHandler creates an auth handler with the provided dependencies.
func NewAuthHandler(deps AuthDeps) *AuthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		logger:    logger,
		users:     deps.Users,
		secret:    deps.Secret,
		issuer:    deps.Issuer,
		expiresIn: deps.ExpiresIn,
	}
}

// Register wires the unauthenticated auth routes.
func (h *AuthHandler) Register(app fiber.Router) {
	grp := app.Group("/auth")
	grp.Post("/register", h.SignUp)
	grp.Post("/login", h.Login)
}

// UserResponse is the account shape returned alongside a token.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Plan     string `json:"plan"`
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Plan:     user.Plan,
	}
}

// SignUpRequest carries the registration form.
type SignUpRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUp handles POST /auth/register
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email, username and a password of at least 8 characters are required",
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash account password", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Plan:         model.PlanFree,
	}
	if err := h.users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, repository.ErrUserTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.logger.Error("failed to create account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return h.respondWithToken(c, fiber.StatusCreated, user)
}

// LoginRequest carries the login form.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	user, err := h.users.GetByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid credentials",
			})
		}
		h.logger.Error("failed to load account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	return h.respondWithToken(c, fiber.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *fiber.Ctx, status int, user *model.User) error {
	token, err := auth.GenerateToken(user.ID, user.Email, user.Plan, h.secret, h.issuer, h.expiresIn)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"token": token,
		"user":  toUserResponse(user),
	})
}
