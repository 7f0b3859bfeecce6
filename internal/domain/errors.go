package domain

import "errors"

// Error kinds shared by every component. Concrete failures wrap one of these
// so callers can branch with errors.Is.
var (
	// ErrConfiguration reports an unavailable or misconfigured capability.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyCorpus reports a build attempted with zero chunks.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrIndexNotReady reports an operation that needs a built or loaded index.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrPersistence reports missing or mutually inconsistent stored artifacts.
	ErrPersistence = errors.New("persistence error")
	// ErrExtraction reports a document or page whose text could not be read.
	ErrExtraction = errors.New("extraction failure")
	// ErrMalformedChunks reports chunk metadata that does not describe each
	// document as positions 0..total-1.
	ErrMalformedChunks = errors.New("malformed chunks")
)
