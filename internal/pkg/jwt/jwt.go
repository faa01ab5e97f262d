package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"cognis/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	secret []byte
	method jwtlib.SigningMethod
	ttl    time.Duration
}

type Claims struct {
	Role domain.UserRole `json:"role"`
	jwtlib.RegisteredClaims
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string {
	return c.Subject
}

// New builds a token service. alg must name an HMAC method (HS256, HS384, HS512).
func New(secret, alg string, ttl time.Duration) (*Service, error) {
	method, ok := jwtlib.GetSigningMethod(alg).(*jwtlib.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
	}
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Service{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
	}, nil
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) GenerateToken(userID string, role domain.UserRole) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(s.method, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{s.method.Alg()}),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
