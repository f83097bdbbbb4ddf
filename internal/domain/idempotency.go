package domain

import "time"

// Idempotency records the identifier returned for a given Idempotency-Key so a
// retried submission yields the original id instead of a second write.
type Idempotency struct {
	ID           string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idempotency_key"`
	SubmissionID string    `gorm:"type:TEXT NOT NULL"`
	Backend      string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt    time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt    time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
