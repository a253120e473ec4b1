package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
	"github.com/FoldlyDev/foldly-server/internal/auth"
)

type mockUserRepository struct {
	createFn     func(ctx context.Context, user *model.User) error
	getByEmailFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func newAuthApp(users repository.UserRepository) *fiber.App {
	app := fiber.New()
	h := NewAuthHandler(AuthDeps{
		Users:     users,
		Secret:    "test-secret",
		Issuer:    "foldly",
		ExpiresIn: time.Hour,
	})
	h.Register(app)
	return app
}

func postJSON(app *fiber.App, path, body string) (int, []byte, error) {
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

func TestAuthHandler_Login_IssuesPlanBearingToken(t *testing.T) {
	hash, err := auth.HashPassword("hunter2pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	users := &mockUserRepository{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email != "pro@example.com" {
				return nil, repository.ErrUserNotFound
			}
			return &model.User{
				ID: "user-1", Email: email, Username: "pro",
				PasswordHash: hash, Plan: model.PlanPro,
			}, nil
		},
	}
	app := newAuthApp(users)

	status, body, err := postJSON(app, "/auth/login", `{"email":"Pro@Example.com","password":"hunter2pass"}`)
	if err != nil {
		t.Fatalf("login request error: %v", err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var payload struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := auth.ParseToken(payload.Token, "test-secret")
	if err != nil {
		t.Fatalf("issued token failed to parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Plan != model.PlanPro {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if payload.User.Plan != model.PlanPro {
		t.Fatalf("expected plan in response, got %q", payload.User.Plan)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	users := &mockUserRepository{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	app := newAuthApp(users)

	status, _, err := postJSON(app, "/auth/login", `{"email":"a@b.co","password":"battery-staple"}`)
	if err != nil {
		t.Fatalf("login request error: %v", err)
	}
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestAuthHandler_SignUp(t *testing.T) {
	var created *model.User
	users := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	app := newAuthApp(users)

	status, body, err := postJSON(app, "/auth/register", `{"email":"New@Example.com","username":"newbie","password":"longenough"}`)
	if err != nil {
		t.Fatalf("register request error: %v", err)
	}
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	if created == nil {
		t.Fatal("expected user to reach the repository")
	}
	if created.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.PasswordHash == "" || created.PasswordHash == "longenough" {
		t.Fatal("expected password stored as a hash")
	}
	if created.Plan != model.PlanFree {
		t.Fatalf("expected new accounts on the free plan, got %q", created.Plan)
	}
}

func TestAuthHandler_SignUp_DuplicateEmail(t *testing.T) {
	users := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrUserTaken
		},
	}
	app := newAuthApp(users)

	status, _, err := postJSON(app, "/auth/register", `{"email":"dup@example.com","username":"dup","password":"longenough"}`)
	if err != nil {
		t.Fatalf("register request error: %v", err)
	}
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
}
