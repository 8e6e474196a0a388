package domain

import "errors"

// Sentinel errors for the fatal failure modes of the answer pipeline.
// Recoverable failures (judge parse errors, web search errors) never surface
// as errors; they are recorded in the diagnostics instead.
var (
	// ErrRetrieval indicates the vector index could not be reached.
	ErrRetrieval = errors.New("retrieval service unavailable")

	// ErrGeneration indicates the answer generation call failed.
	ErrGeneration = errors.New("answer generation failed")

	// ErrCancelled indicates the caller cancelled the query before it finished.
	ErrCancelled = errors.New("query cancelled")
)
