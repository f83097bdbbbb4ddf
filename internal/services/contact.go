package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-contact-intake/internal/domain"
	"github.com/tbourn/go-contact-intake/internal/storage"
)

var tracer = otel.Tracer("github.com/tbourn/go-contact-intake/internal/services")

// ContactInput holds the three form fields after extraction from the request.
type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// FieldsFromRecord extracts name, email, and message from an arbitrary JSON
// object. Missing or non-string values become empty strings. Values are
// trimmed of surrounding whitespace.
func FieldsFromRecord(rec map[string]any) ContactInput {
	return ContactInput{
		Name:    stringField(rec, "name"),
		Email:   stringField(rec, "email"),
		Message: stringField(rec, "message"),
	}
}

func stringField(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return strings.TrimSpace(s)
}

// Validate reports ErrFieldsRequired when any field is empty after trimming.
// Content is not otherwise checked (no e-mail format or length rules).
func (in ContactInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.Message) == "" {
		return ErrFieldsRequired
	}
	return nil
}

// NewSubmission builds a Submission with a fresh 128-bit hex token and now
// rendered in UTC at second precision.
func NewSubmission(in ContactInput, ip string, now time.Time) *domain.Submission {
	return &domain.Submission{
		ID:          domain.NewToken(),
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Message:     strings.TrimSpace(in.Message),
		SubmittedAt: domain.FormatTimestamp(now),
		IP:          ip,
	}
}

// Ledger remembers the identifier returned for an idempotency key.
type Ledger interface {
	Lookup(ctx context.Context, key string, now time.Time) (id string, ok bool, err error)
	Remember(ctx context.Context, key, id, backend string) error
}

// Notifier is told about every stored submission.
type Notifier interface {
	Notify(ctx context.Context, s *domain.Submission, id string) error
}

// SubmitResult is the outcome of a successful Submit.
type SubmitResult struct {
	ID       string
	Replayed bool // true when an earlier result was returned for the idempotency key
}

// ContactService orchestrates one submission: validate, build, prepare the
// backend if it needs it, write once. It holds no per-request state and is
// safe for concurrent use.
type ContactService struct {
	// Backend is the single storage target chosen at startup.
	Backend storage.Backend
	// Ledger is optional; nil disables Idempotency-Key handling.
	Ledger Ledger
	// Notifier is optional; its failures are logged and never fail Submit.
	Notifier Notifier
	// Now defaults to time.Now.
	Now func() time.Time
}

// Submit validates rec and persists it. Errors:
//   - ErrFieldsRequired when validation fails (nothing is written)
//   - an error wrapping storage.ErrStoragePreparation when the backend's
//     precondition check fails (nothing is written)
//   - *storage.WriteError when the write itself fails
func (s *ContactService) Submit(ctx context.Context, rec map[string]any, ip, idemKey string) (res SubmitResult, err error) {
	backend := s.Backend.Name()
	ctx, span := tracer.Start(ctx, "contact.submit", trace.WithAttributes(
		attribute.String("contact.backend", backend),
		attribute.Bool("contact.idempotency_key", idemKey != ""),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Bool("contact.replayed", res.Replayed))
		}
		span.End()
	}()
	lg := zerolog.Ctx(ctx)

	in := FieldsFromRecord(rec)
	if err := in.Validate(); err != nil {
		observeSubmission(backend, outcomeInvalid)
		return SubmitResult{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if idemKey != "" && s.Ledger != nil {
		id, ok, err := s.Ledger.Lookup(ctx, idemKey, now().UTC())
		switch {
		case err != nil:
			lg.Warn().Err(err).Msg("idempotency lookup failed")
		case ok:
			observeSubmission(backend, outcomeReplayed)
			return SubmitResult{ID: id, Replayed: true}, nil
		}
	}

	sub := NewSubmission(in, ip, now())

	if p, ok := s.Backend.(storage.Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			observeSubmission(backend, outcomePrepareFailed)
			if !errors.Is(err, storage.ErrStoragePreparation) {
				err = errors.Join(storage.ErrStoragePreparation, err)
			}
			return SubmitResult{}, err
		}
	}

	id, err := s.Backend.Write(ctx, sub)
	if err != nil {
		observeSubmission(backend, outcomeWriteFailed)
		var we *storage.WriteError
		if !errors.As(err, &we) {
			err = &storage.WriteError{Backend: backend, Err: err}
		}
		return SubmitResult{}, err
	}
	observeSubmission(backend, outcomeStored)

	if idemKey != "" && s.Ledger != nil {
		if err := s.Ledger.Remember(ctx, idemKey, id, backend); err != nil {
			lg.Warn().Err(err).Str("submission_id", id).Msg("idempotency record failed")
		}
	}
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, sub, id); err != nil {
			lg.Warn().Err(err).Str("submission_id", id).Msg("owner notification failed")
		}
	}

	return SubmitResult{ID: id}, nil
}
