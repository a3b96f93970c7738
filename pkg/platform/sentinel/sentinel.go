package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the blob layer, and the
// renderer return these (optionally wrapped) so services can translate them
// into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store (or not for this owner)
// - ErrStaleFile: record exists but its stored bytes are gone
// - ErrUnreadableDocument: input bytes are not a parsable document
// - ErrUnavailable: detection capability or backing service unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound           = errors.New("not found")
	ErrStaleFile          = errors.New("stored file missing")
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrUnavailable        = errors.New("unavailable")
)
