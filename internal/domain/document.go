package domain

import (
	"context"

	"github.com/google/uuid"
)

// Document is a retrieved passage: the unit of text the grader judges and the
// assembler concatenates. It is owned by the retriever and read-only downstream.
type Document struct {
	ID      uuid.UUID
	Content string
	// Source records provenance (origin URL or path of the ingested document).
	Source string
	// Score is the retrieval similarity score, kept for diagnostics.
	Score float32
}

// Retriever fetches candidate passages for a query from the vector index.
// Returning fewer than k documents, including zero, is not an error; an
// unreachable index is reported as ErrRetrieval.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}
