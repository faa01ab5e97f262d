package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cognis/internal/domain"
)

const recentUploads = 5

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type RecentFiles interface {
	List(ctx context.Context, limit int) ([]domain.UploadedFile, error)
}

type RecentUpload struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Summary struct {
	TotalUsers     int64          `json:"total_users"`
	TotalCases     int64          `json:"total_cases"`
	TotalUFDRFiles int64          `json:"total_ufdr_files"`
	TotalArtifacts int64          `json:"total_artifacts"`
	RecentUploads  []RecentUpload `json:"recent_uploads"`
}

type Service struct {
	users     Counter
	cases     Counter
	files     Counter
	artifacts Counter
	recent    RecentFiles
}

func NewService(users, cases, files, artifacts Counter, recent RecentFiles) *Service {
	return &Service{users: users, cases: cases, files: files, artifacts: artifacts, recent: recent}
}

// Summary gathers the counters concurrently.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	out := &Summary{RecentUploads: []RecentUpload{}}
	g, gctx := errgroup.WithContext(ctx)

	count := func(name string, c Counter, dst *int64) {
		g.Go(func() error {
			n, err := c.Count(gctx)
			if err != nil {
				return fmt.Errorf("count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count("users", s.users, &out.TotalUsers)
	count("cases", s.cases, &out.TotalCases)
	count("files", s.files, &out.TotalUFDRFiles)
	count("artifacts", s.artifacts, &out.TotalArtifacts)

	g.Go(func() error {
		files, err := s.recent.List(gctx, recentUploads)
		if err != nil {
			return fmt.Errorf("recent uploads: %w", err)
		}
		for _, f := range files {
			out.RecentUploads = append(out.RecentUploads, RecentUpload{
				ID:         f.ID,
				Filename:   f.Filename,
				UploadedAt: f.UploadedAt,
			})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
