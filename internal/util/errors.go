package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	// ErrDuplicateDocument means the filename is already in the ingestion
	// ledger. Informational, not a failure.
	ErrDuplicateDocument = errors.New("document already ingested")

	// ErrIndexCorrupt means the persisted vector index could not be decoded.
	// Recovery requires an operator-confirmed knowledge-base clear.
	ErrIndexCorrupt = errors.New("persisted vector index is unreadable")

	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderAuth        = errors.New("provider authentication failed")
)
