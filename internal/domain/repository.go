package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DocumentRecord is an ingested source document. Source is the caller-supplied
// provenance (path or URL) and doubles as the upsert key.
type DocumentRecord struct {
	ID               uuid.UUID
	Source           string
	CurrentVersionID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DocumentVersion is an immutable snapshot of a document's ingested content.
type DocumentVersion struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	VersionNumber   int
	SourceHash      string
	ChunkerVersion  string
	EmbedderVersion string
	CreatedAt       time.Time
}

// StoredChunk is a persisted chunk with its embedding.
type StoredChunk struct {
	ID        uuid.UUID
	VersionID uuid.UUID
	Ordinal   int
	Content   string
	Embedding pgvector.Vector
	CreatedAt time.Time
}

// ChunkSearchHit is a chunk found via vector search together with its
// similarity score and the source it came from.
type ChunkSearchHit struct {
	Chunk  StoredChunk
	Score  float32
	Source string
}

// DocumentRepository manages documents and their versions.
type DocumentRepository interface {
	// GetBySource returns the document for a source, or nil if none exists.
	GetBySource(ctx context.Context, source string) (*DocumentRecord, error)
	Create(ctx context.Context, doc *DocumentRecord) error
	UpdateCurrentVersion(ctx context.Context, docID, versionID uuid.UUID) error
	// GetLatestVersion returns the newest version, or nil if none exists.
	GetLatestVersion(ctx context.Context, docID uuid.UUID) (*DocumentVersion, error)
	CreateVersion(ctx context.Context, version *DocumentVersion) error
	Count(ctx context.Context) (int64, error)
}

// ChunkRepository manages persisted chunks and vector search over them.
type ChunkRepository interface {
	BulkInsert(ctx context.Context, chunks []StoredChunk) error
	// Search returns the chunks of current document versions nearest to the
	// query vector, best first.
	Search(ctx context.Context, queryVector []float32, limit int) ([]ChunkSearchHit, error)
	Count(ctx context.Context) (int64, error)
}

// IngestJob is a queued ingestion request processed by the background worker.
type IngestJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]interface{}
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobRepository is the persistent work queue backing asynchronous ingestion.
type JobRepository interface {
	Enqueue(ctx context.Context, job *IngestJob) error
	// AcquireNext atomically claims the oldest queued job, or returns nil
	// when the queue is empty.
	AcquireNext(ctx context.Context) (*IngestJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager runs a function inside a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
