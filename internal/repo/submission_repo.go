package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-contact-intake/internal/domain"
)

// CreateSubmission inserts s as a new row. The caller assigns s.ID.
func CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error {
	return db.WithContext(ctx).Create(s).Error
}
