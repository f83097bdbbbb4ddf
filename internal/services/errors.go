// Package services implements the contact intake use case: validate the form
// fields, build a submission, and hand it to the configured storage backend.
// Transport concerns (status codes, JSON envelopes) stay in the handlers.
package services

import "errors"

// ErrFieldsRequired is returned when name, email, or message is missing or
// blank after trimming. No write is attempted.
var ErrFieldsRequired = errors.New("All fields are required")
