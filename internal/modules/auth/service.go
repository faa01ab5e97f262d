package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cognis/internal/database"
	"cognis/internal/domain"
)

// Service contains the account and login logic.
type Service struct {
	users      UserRepositoryInterface
	jwt        jwtService
	bcryptCost int
}

func NewService(users UserRepositoryInterface, jwt jwtService) *Service {
	return &Service{
		users:      users,
		jwt:        jwt,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Signup creates an investigator account. Requests for any other role are
// refused; admins are created with cognisctl.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	if req.Role != "" {
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		if role != domain.RoleInvestigator {
			return nil, ErrAdminSignup
		}
	}
	return s.CreateUser(ctx, req.Username, req.Email, req.Password, domain.RoleInvestigator)
}

// CreateUser stores a new account with the given role.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, role domain.UserRole) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup.
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the password and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
		User:        toUserPublic(user),
	}, nil
}
