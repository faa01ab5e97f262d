package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cognis/internal/domain"
)

var ErrEmptyTitle = errors.New("case title is required")

type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	List(ctx context.Context) ([]domain.Case, error)
}

type CreateCaseRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
}

type Service struct {
	cases CaseRepository
}

func NewService(cases CaseRepository) *Service {
	return &Service{cases: cases}
}

// Create stores a case owned by creator.
func (s *Service) Create(ctx context.Context, creator *domain.User, req CreateCaseRequest) (*domain.Case, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	c := &domain.Case{Title: title, Description: req.Description}
	if creator != nil {
		id := creator.ID
		c.CreatedBy = &id
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}
	return c, nil
}

// List returns every case, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Case, error) {
	out, err := s.cases.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	if out == nil {
		out = []domain.Case{}
	}
	return out, nil
}
