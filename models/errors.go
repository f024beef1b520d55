package models

import "errors"

// Pipeline and collaborator errors, matched with errors.Is across layers.
var (
	// ErrUnsupportedFormat means the declared file type has no extraction
	// strategy. Non-retryable, surfaced to the uploader at request time.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtraction means a recognized format failed to parse. The file
	// stays unprocessed.
	ErrExtraction = errors.New("extraction failed")

	// ErrIndexLoad means a persisted index is missing or corrupt. Recovered
	// locally by creating a fresh index; never surfaced.
	ErrIndexLoad = errors.New("index load failed")

	// ErrGeneration means the completion call failed. Surfaced to the
	// caller: an answer-less response is a failure the user must see.
	ErrGeneration = errors.New("generation failed")

	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
)
