package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-contact-intake/internal/repo"
)

// IdempotencyLedger is the GORM-backed Ledger. Records expire after TTL.
type IdempotencyLedger struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Lookup returns the identifier stored for key if it has not expired.
func (l *IdempotencyLedger) Lookup(ctx context.Context, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, l.DB, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.SubmissionID, true, nil
}

// Remember stores id under key. A concurrent request that already claimed
// the key wins; the duplicate is not an error.
func (l *IdempotencyLedger) Remember(ctx context.Context, key, id, backend string) error {
	_, err := repo.CreateIdempotency(ctx, l.DB, key, id, backend, l.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
