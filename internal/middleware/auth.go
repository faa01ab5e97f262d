package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cognis/internal/domain"
	"cognis/internal/pkg/jwt"
	"cognis/internal/pkg/response"
)

const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

var (
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrForbidden       = errors.New("insufficient permissions")
)

type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Guard resolves the caller behind a bearer token and checks roles. Nothing
// is cached: every request re-validates the token and reloads the user.
type Guard struct {
	tokens TokenValidator
	users  UserFinder
}

func NewGuard(tokens TokenValidator, users UserFinder) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate returns the user the token was issued for. A bad token and a
// user that no longer exists fail the same way.
func (g *Guard) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := g.users.GetByID(ctx, claims.UserID())
	if err != nil || user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Authorize passes user through unchanged when it holds one of roles.
func (g *Guard) Authorize(user *domain.User, roles ...domain.UserRole) (*domain.User, error) {
	if user == nil || !user.HasRole(roles...) {
		return nil, ErrForbidden
	}
	return user, nil
}

// RequireAuth rejects requests without a valid bearer token. Websocket
// upgrades may pass the token as ?token= since browsers cannot set headers
// on them.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := g.Authenticate(c.Request.Context(), requestToken(c))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthenticated, "Could not validate credentials")
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxUserID, user.ID)
		c.Set(ctxRole, string(user.Role))
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (g *Guard) RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := CurrentUser(c)
		if _, err := g.Authorize(user, roles...); err != nil {
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the caller resolved by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func requestToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	if websocket.IsWebSocketUpgrade(c.Request) {
		return c.Query("token")
	}
	return ""
}
