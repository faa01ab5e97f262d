package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"cognis/internal/domain"
)

const (
	DefaultLimit   = 5
	MaxLimit       = 25
	minQueryLength = 2
	maxSnippetLen  = 800
)

var (
	ErrQueryTooShort = errors.New("query must be at least 2 characters")
	ErrEmptyQuery    = errors.New("query has no search terms")
	ErrInvalidLimit  = errors.New("limit must be between 1 and 25")
)

type ArtifactSearcher interface {
	Search(ctx context.Context, fileID string, terms []string, limit int) ([]domain.Artifact, error)
}

type Answer struct {
	Query      string `json:"query"`
	UFDRFileID string `json:"ufdr_file_id"`
	Answer     string `json:"answer"`
	NumMatches int    `json:"num_matches"`
}

// Service answers free-text questions about one file by keyword matching its
// artifacts.
type Service struct {
	artifacts ArtifactSearcher
}

func NewService(artifacts ArtifactSearcher) *Service {
	return &Service{artifacts: artifacts}
}

// Ask matches any whitespace-separated term of q. When nothing matches the
// first limit artifacts of the file are used instead. limit 0 means DefaultLimit.
func (s *Service) Ask(ctx context.Context, fileID, q string, limit int) (*Answer, error) {
	if utf8.RuneCountInString(q) < minQueryLength {
		return nil, ErrQueryTooShort
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, ErrInvalidLimit
	}

	terms := strings.Fields(q)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	matches, err := s.artifacts.Search(ctx, fileID, terms, limit)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		if matches, err = s.artifacts.Search(ctx, fileID, nil, limit); err != nil {
			return nil, err
		}
	}

	snippets := make([]string, 0, len(matches))
	for _, a := range matches {
		snippets = append(snippets, fmt.Sprintf("[%s] %s", a.Type, truncate(a.ExtractedText, maxSnippetLen)))
	}

	text := fmt.Sprintf("I searched the UFDR file for: '%s'.\nFound %d relevant artifacts:\n\n", q, len(snippets)) +
		strings.Join(snippets, "\n\n")

	return &Answer{
		Query:      q,
		UFDRFileID: fileID,
		Answer:     text,
		NumMatches: len(snippets),
	}, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
