package repository

import (
	"context"
	"strings"

	"cognis/internal/domain"

	"gorm.io/gorm"
)

type ArtifactRepository struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching term anywhere in
// search_text, which holds the Go-lowered artifact text.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// ListByFile returns the artifacts of a file in creation order. When terms is
// non-empty only artifacts whose text contains at least one term
// (case-insensitive) are returned. A limit <= 0 means no limit.
func (r *ArtifactRepository) ListByFile(ctx context.Context, fileID string, terms []string, limit int) ([]domain.Artifact, error) {
	q := r.db.WithContext(ctx).
		Where("ufdr_file_id = ?", fileID)

	if len(terms) > 0 {
		var clauses []string
		var args []any
		for _, term := range terms {
			if term == "" {
				continue
			}
			clauses = append(clauses, `search_text LIKE ? ESCAPE '\'`)
			args = append(args, containsPattern(term))
		}
		if len(clauses) > 0 {
			q = q.Where(strings.Join(clauses, " OR "), args...)
		}
	}

	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []domain.Artifact
	tx := q.Order("created_at ASC").Order("id ASC").Find(&out)
	return out, tx.Error
}

func (r *ArtifactRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Artifact{}).Count(&n).Error
	return n, err
}
