package storage

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/domain"
	"github.com/tbourn/go-contact-intake/internal/repo"
)

// SQLWriter stores submissions as rows in the submissions table.
type SQLWriter struct {
	db *gorm.DB
}

// NewSQLWriter returns a writer over db. The schema must already be migrated.
func NewSQLWriter(db *gorm.DB) *SQLWriter {
	return &SQLWriter{db: db}
}

// Name implements Backend.
func (*SQLWriter) Name() string { return config.BackendSQLite }

// Write implements Backend. The identifier is the submission's local token.
func (w *SQLWriter) Write(ctx context.Context, s *domain.Submission) (string, error) {
	if err := repo.CreateSubmission(ctx, w.db, s); err != nil {
		return "", writeErr(config.BackendSQLite, err)
	}
	return s.ID, nil
}
