package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gofiber/fiber/v2"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
)

type fakeValidator struct {
	claims any
	err    error
}

func (f fakeValidator) ValidateToken(ctx context.Context, token string) (any, error) {
	if token != "good" {
		return nil, errors.New("bad signature")
	}
	return f.claims, f.err
}

func newApp(v TokenValidator) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(v, slog.New(slog.NewTextHandler(io.Discard, nil))))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sub": Subject(c), "email": Email(c), "name": Name(c)})
	})
	return app
}

func TestMiddleware(t *testing.T) {
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|123"},
		CustomClaims:     &CustomClaims{Email: "a@example.com", Name: "Ada"},
	}
	app := newApp(fakeValidator{claims: claims})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"missing header", "", 401, "missing authorization header"},
		{"wrong scheme", "Basic abc", 401, "invalid authorization header format"},
		{"empty token", "Bearer ", 401, "invalid authorization header format"},
		{"invalid token", "Bearer nope", 401, "invalid token"},
		{"valid token", "Bearer good", 200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == 401 {
				var body gocommon.ErrorResponse
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
					t.Fatalf("decode failed: %v", err)
				}
				if body.Error.Message != tt.wantMsg {
					t.Errorf("message = %q, want %q", body.Error.Message, tt.wantMsg)
				}
				return
			}

			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if body["sub"] != "auth0|123" || body["email"] != "a@example.com" || body["name"] != "Ada" {
				t.Errorf("unexpected locals %v", body)
			}
		})
	}
}

func TestMiddleware_UnexpectedClaims(t *testing.T) {
	app := newApp(fakeValidator{claims: "not claims"})
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestNewValidator(t *testing.T) {
	v, err := NewValidator("tenant.example.com", "https://api.example.com")
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	if v == nil {
		t.Fatal("expected a validator")
	}
}
