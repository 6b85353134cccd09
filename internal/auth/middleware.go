// Package auth validates Auth0 bearer tokens on the /v1 API.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gofiber/fiber/v2"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
)

// CustomClaims contains custom claims from Auth0 token
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate validates the custom claims (required by validator.CustomClaims interface)
func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// TokenValidator is satisfied by *validator.Validator.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// NewValidator builds an RS256 validator backed by the tenant's JWKS.
func NewValidator(domain, audience string) (*validator.Validator, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse Auth0 issuer URL: %w", err)
	}

	// Setup JWKS provider with caching
	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	v, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}
	return v, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// subject and profile claims in the fiber locals.
func Middleware(v TokenValidator, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return unauthorized(c, "invalid authorization header format")
		}

		claims, err := v.ValidateToken(c.UserContext(), token)
		if err != nil {
			logger.Debug("token validation failed", "error", err)
			return unauthorized(c, "invalid token")
		}

		validated, ok := claims.(*validator.ValidatedClaims)
		if !ok {
			return unauthorized(c, "invalid claims format")
		}

		c.Locals(localSubject, validated.RegisteredClaims.Subject)
		if custom, ok := validated.CustomClaims.(*CustomClaims); ok {
			c.Locals(localEmail, custom.Email)
			c.Locals(localName, custom.Name)
		}

		return c.Next()
	}
}

const (
	localSubject = "auth0_sub"
	localEmail   = "email"
	localName    = "name"
)

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(gocommon.NewError("unauthorized", msg))
}

// Subject returns the Auth0 subject, or "" on unauthenticated routes.
func Subject(c *fiber.Ctx) string {
	if sub, ok := c.Locals(localSubject).(string); ok {
		return sub
	}
	return ""
}

// Email returns the email claim if present.
func Email(c *fiber.Ctx) string {
	if email, ok := c.Locals(localEmail).(string); ok {
		return email
	}
	return ""
}

// Name returns the name claim if present.
func Name(c *fiber.Ctx) string {
	if name, ok := c.Locals(localName).(string); ok {
		return name
	}
	return ""
}
