package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contact-intake/internal/http/middleware"
	"github.com/tbourn/go-contact-intake/internal/services"
	"github.com/tbourn/go-contact-intake/internal/storage"
)

// ContactService is the submission use case consumed by SubmitContact.
type ContactService interface {
	Submit(ctx context.Context, rec map[string]any, ip, idemKey string) (services.SubmitResult, error)
}

// Handlers groups the API endpoints.
type Handlers struct {
	contact ContactService
}

// New binds the handlers to their service.
func New(contact ContactService) *Handlers {
	return &Handlers{contact: contact}
}

// ContactRequest documents the expected payload. The handler itself accepts
// any JSON and treats missing or non-string fields as empty.
type ContactRequest struct {
	Name    string `json:"name" example:"Ada Lovelace"`
	Email   string `json:"email" example:"ada@example.com"`
	Message string `json:"message" example:"Hi, I'd like to talk about a project."`
}

// ContactResponse is returned for a stored (or replayed) submission.
type ContactResponse struct {
	OK bool   `json:"ok" example:"true"`
	ID string `json:"id" example:"3f2b6c1e0d9a4b7c8e5f1a2b3c4d5e6f"`
}

// SubmitContact godoc
// @ID          submitContact
// @Summary     Submit the contact form
// @Description Validates name, email and message, stores the submission in the configured backend and returns its id.
// @Description The id format depends on the backend: a 32-char hex token, a database id, or an object key.
// @Description A repeated Idempotency-Key returns the original id without storing again.
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                   false  "Key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ContactRequest  true   "Contact form fields"
//
// @Success     200  {object}  handlers.ContactResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing field or invalid Idempotency-Key"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Storage preparation or write failed"
// @Router      /contact [post]
func (h *Handlers) SubmitContact(c *gin.Context) {
	rec, err := readRecord(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
			return
		}
	}

	key, _ := middleware.GetIdempotencyKey(c)
	res, err := h.contact.Submit(c.Request.Context(), rec, c.ClientIP(), key)
	if err != nil {
		var we *storage.WriteError
		switch {
		case errors.Is(err, services.ErrFieldsRequired):
			fail(c, http.StatusBadRequest, MsgFieldsRequired)
		case errors.Is(err, storage.ErrStoragePreparation):
			middleware.LoggerFrom(c).Error().Err(err).Msg("storage preparation failed")
			fail(c, http.StatusInternalServerError, MsgPrepareFailed)
		case errors.As(err, &we):
			middleware.LoggerFrom(c).Error().Err(we.Err).Str("backend", we.Backend).Msg("submission write failed")
			fail(c, http.StatusInternalServerError, we.Error())
		default:
			middleware.LoggerFrom(c).Error().Err(err).Msg("submission failed")
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if res.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	ok(c, ContactResponse{OK: true, ID: res.ID})
}

// readRecord decodes body as a JSON object. Anything else (empty, malformed,
// an array, a scalar) yields an empty record; only read errors are returned.
func readRecord(body io.Reader) (map[string]any, error) {
	rec := map[string]any{}
	if body == nil {
		return rec, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return rec, err
	}
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil || m == nil {
		return rec, nil
	}
	return m, nil
}
