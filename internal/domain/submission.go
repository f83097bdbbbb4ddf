// Package domain defines the records persisted by the intake service. The
// same Submission type is encoded as a JSON line, a BSON document, an S3
// object body, and a SQLite row, so it carries tags for every backend.
package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format of SubmittedAt: UTC, second precision,
// with a literal Z suffix.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Submission is one validated contact-form record. It is immutable once
// written; the service never reads, updates, or deletes it.
type Submission struct {
	ID          string `json:"_id"          bson:"-"            gorm:"type:char(32);primaryKey"`
	Name        string `json:"name"         bson:"name"         gorm:"type:text;not null"`
	Email       string `json:"email"        bson:"email"        gorm:"type:text;not null"`
	Message     string `json:"message"      bson:"message"      gorm:"type:text;not null"`
	SubmittedAt string `json:"submitted_at" bson:"submitted_at" gorm:"type:varchar(20);not null;index"`
	IP          string `json:"ip"           bson:"ip"           gorm:"type:varchar(64)"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// FormatTimestamp renders t in TimestampLayout after converting to UTC and
// dropping sub-second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// NewToken returns 32 lowercase hex characters drawn from a random UUID.
func NewToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
