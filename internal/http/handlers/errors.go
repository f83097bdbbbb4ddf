package handlers

// Client-facing error messages. MsgFieldsRequired and MsgPrepareFailed are
// part of the public contract; front ends match on them.
const (
	MsgFieldsRequired   = "All fields are required"
	MsgPrepareFailed    = "Could not prepare storage"
	MsgBodyTooLarge     = "request body too large"
	MsgRouteNotFound    = "route not found"
	MsgMethodNotAllowed = "method not allowed"
)
