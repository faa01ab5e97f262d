package auth

import (
	"context"
	"time"

	"cognis/internal/domain"
)

// UserRepositoryInterface lists only the methods the auth service uses.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

type jwtService interface {
	GenerateToken(userID string, role domain.UserRole) (string, error)
	TTL() time.Duration
}
