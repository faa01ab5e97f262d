package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"cognis/internal/domain"
)

var ErrFileNotFound = errors.New("ufdr file not found")

type FileFinder interface {
	GetByID(ctx context.Context, id string) (*domain.UploadedFile, error)
}

type ArtifactRepository interface {
	ListByFile(ctx context.Context, fileID string, terms []string, limit int) ([]domain.Artifact, error)
}

type Service struct {
	files     FileFinder
	artifacts ArtifactRepository
}

func NewService(files FileFinder, artifacts ArtifactRepository) *Service {
	return &Service{files: files, artifacts: artifacts}
}

// List returns the artifacts of a file. A non-empty q keeps only artifacts
// whose text contains q, ignoring case.
func (s *Service) List(ctx context.Context, fileID, q string) ([]domain.Artifact, error) {
	var terms []string
	if q = strings.TrimSpace(q); q != "" {
		terms = []string{q}
	}
	return s.Search(ctx, fileID, terms, 0)
}

// Search returns up to limit artifacts of a file matching any of terms.
func (s *Service) Search(ctx context.Context, fileID string, terms []string, limit int) ([]domain.Artifact, error) {
	if _, err := s.files.GetByID(ctx, fileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("load file: %w", err)
	}

	out, err := s.artifacts.ListByFile(ctx, fileID, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	if out == nil {
		out = []domain.Artifact{}
	}
	return out, nil
}
