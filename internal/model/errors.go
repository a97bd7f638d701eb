package model

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrMissingID marks a feed record without a CVE identifier; fatal for
	// that record only, never for the batch.
	ErrMissingID = errors.New("record has no CVE id")

	// ErrRetrieval and ErrGeneration distinguish which stage of the answer
	// pipeline failed so callers know what to retry.
	ErrRetrieval  = errors.New("retrieval failed")
	ErrGeneration = errors.New("generation failed")
)
