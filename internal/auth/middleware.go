package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for the lifetime of a
// single request.
type Principal struct {
	User        *domain.User
	Authorities map[string]struct{}
}

// HasAuthority reports whether the principal holds the given authority.
func (p *Principal) HasAuthority(authority string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Authorities[authority]
	return ok
}

// Middleware validates bearer tokens and attaches principals to the
// request scope. It never rejects a request itself: any failure along
// the way (missing header, malformed token, bad signature, expiry,
// unknown subject) forwards the request unauthenticated and leaves
// rejection to the authorization gate on protected routes.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	logger *zap.Logger
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, logger: logger}
}

// Handle runs once per request, before any business handler.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return c.Next()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return c.Next()
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		m.logger.Debug("token rejected", zap.Error(err))
		return c.Next()
	}

	user, err := m.users.GetByUsername(c.Context(), claims.Subject)
	if err != nil {
		// Subject may have been deleted after issuance; treat any
		// lookup failure as unauthenticated rather than failing the
		// request.
		if !errors.Is(err, pgx.ErrNoRows) {
			m.logger.Warn("identity lookup failed", zap.Error(err))
		}
		return c.Next()
	}

	c.Locals(principalKey, &Principal{
		User:        user,
		Authorities: map[string]struct{}{user.Role.Authority(): {}},
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
