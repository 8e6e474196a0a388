package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a Postgres-backed DocumentRepository.
func NewDocumentRepository(pool *pgxpool.Pool) domain.DocumentRepository {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) getExecutor(ctx context.Context) interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
} {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *documentRepository) GetBySource(ctx context.Context, source string) (*domain.DocumentRecord, error) {
	query := `
		SELECT id, source, current_version_id, created_at, updated_at
		FROM documents
		WHERE source = $1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, source)

	var doc domain.DocumentRecord
	err := row.Scan(&doc.ID, &doc.Source, &doc.CurrentVersionID, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.DocumentRecord) error {
	query := `
		INSERT INTO documents (id, source, current_version_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, doc.ID, doc.Source, doc.CurrentVersionID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *documentRepository) UpdateCurrentVersion(ctx context.Context, docID, versionID uuid.UUID) error {
	query := `
		UPDATE documents
		SET current_version_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, versionID, docID)
	if err != nil {
		return fmt.Errorf("failed to update current version: %w", err)
	}
	return nil
}

func (r *documentRepository) GetLatestVersion(ctx context.Context, docID uuid.UUID) (*domain.DocumentVersion, error) {
	query := `
		SELECT id, document_id, version_number, source_hash, chunker_version, embedder_version, created_at
		FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, docID)

	var ver domain.DocumentVersion
	err := row.Scan(&ver.ID, &ver.DocumentID, &ver.VersionNumber, &ver.SourceHash, &ver.ChunkerVersion, &ver.EmbedderVersion, &ver.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	return &ver, nil
}

func (r *documentRepository) CreateVersion(ctx context.Context, version *domain.DocumentVersion) error {
	query := `
		INSERT INTO document_versions (id, document_id, version_number, source_hash, chunker_version, embedder_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		version.ID,
		version.DocumentID,
		version.VersionNumber,
		version.SourceHash,
		version.ChunkerVersion,
		version.EmbedderVersion,
		version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

func (r *documentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.getExecutor(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
