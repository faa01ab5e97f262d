package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cognis/internal/domain"
)

// RecentLimit is how many entries GET /audit/logs returns.
const RecentLimit = 50

var ErrInvalidRetention = errors.New("retention must be positive")

type Repository interface {
	Recent(ctx context.Context, limit int) ([]domain.AuditLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Recent returns the newest audit entries first.
func (s *Service) Recent(ctx context.Context) ([]domain.AuditLogEntry, error) {
	out, err := s.repo.Recent(ctx, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent audit logs: %w", err)
	}
	if out == nil {
		out = []domain.AuditLogEntry{}
	}
	return out, nil
}

// Prune deletes entries older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, ErrInvalidRetention
	}
	n, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return n, nil
}
