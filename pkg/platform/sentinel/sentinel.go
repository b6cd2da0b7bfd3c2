package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the gateway can translate them into domain errors.
//
// These represent factual states about documents, not validation failures:
//   - ErrNotFound: document does not exist in the store
//   - ErrConflict: the store already holds a document for the same business key,
//     or a lookup matched more than one document
//   - ErrUnavailable: backing store temporarily unavailable
//   - ErrClosed: store or publisher used after Close
//
// For validation errors (bad names, bad phone numbers), see the contact models.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrClosed      = errors.New("closed")
)
