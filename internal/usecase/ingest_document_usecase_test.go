package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDocumentRepo struct {
	mock.Mock
}

func (m *mockDocumentRepo) GetBySource(ctx context.Context, source string) (*domain.DocumentRecord, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentRecord), args.Error(1)
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *domain.DocumentRecord) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentRepo) UpdateCurrentVersion(ctx context.Context, docID, versionID uuid.UUID) error {
	args := m.Called(ctx, docID, versionID)
	return args.Error(0)
}

func (m *mockDocumentRepo) GetLatestVersion(ctx context.Context, docID uuid.UUID) (*domain.DocumentVersion, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentVersion), args.Error(1)
}

func (m *mockDocumentRepo) CreateVersion(ctx context.Context, version *domain.DocumentVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *mockDocumentRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockChunkRepo struct {
	mock.Mock
}

func (m *mockChunkRepo) BulkInsert(ctx context.Context, chunks []domain.StoredChunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *mockChunkRepo) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ChunkSearchHit, error) {
	args := m.Called(ctx, queryVector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkSearchHit), args.Error(1)
}

func (m *mockChunkRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockVectorEncoder struct {
	mock.Mock
}

func (m *mockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockVectorEncoder) Version() string {
	return "mock-encoder"
}

// passthroughTxManager runs the function directly; repository mocks do not
// need a live transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const ingestBody = `This is the first paragraph of the test document and it contains enough text to stand on its own as a chunk.

This is the second paragraph of the test document and it also contains enough text to stand on its own as a chunk.`

func encodeAnything(n int) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = []float32{float32(i), 0.5, 0.25}
	}
	return vectors
}

func TestIngestUpsert_NewDocument(t *testing.T) {
	docRepo := new(mockDocumentRepo)
	chunkRepo := new(mockChunkRepo)
	encoder := new(mockVectorEncoder)

	docRepo.On("GetBySource", mock.Anything, "guide.md").Return(nil, nil)
	docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.DocumentRecord) bool {
		return d.Source == "guide.md" && d.ID != uuid.Nil
	})).Return(nil)
	docRepo.On("CreateVersion", mock.Anything, mock.MatchedBy(func(v *domain.DocumentVersion) bool {
		return v.VersionNumber == 1 &&
			v.SourceHash == domain.ContentHash(ingestBody) &&
			v.ChunkerVersion == string(domain.ChunkerVersionV1) &&
			v.EmbedderVersion == "mock-encoder"
	})).Return(nil)
	docRepo.On("UpdateCurrentVersion", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	encoder.On("Encode", mock.Anything, mock.MatchedBy(func(texts []string) bool {
		return len(texts) == 2 && strings.HasPrefix(texts[0], "This is the first paragraph")
	})).Return(encodeAnything(2), nil)
	chunkRepo.On("BulkInsert", mock.Anything, mock.MatchedBy(func(chunks []domain.StoredChunk) bool {
		return len(chunks) == 2 && chunks[0].Ordinal == 0 && chunks[1].Ordinal == 1
	})).Return(nil)

	u := NewIngestDocumentUsecase(docRepo, chunkRepo, passthroughTxManager{}, domain.NewChunker(), encoder)
	err := u.Upsert(context.Background(), "guide.md", ingestBody)

	require.NoError(t, err)
	docRepo.AssertExpectations(t)
	chunkRepo.AssertExpectations(t)
	encoder.AssertExpectations(t)
}

func TestIngestUpsert_UnchangedContentIsNoOp(t *testing.T) {
	docID := uuid.New()
	versionID := uuid.New()
	docRepo := new(mockDocumentRepo)
	chunkRepo := new(mockChunkRepo)
	encoder := new(mockVectorEncoder)

	docRepo.On("GetBySource", mock.Anything, "guide.md").Return(&domain.DocumentRecord{
		ID:               docID,
		Source:           "guide.md",
		CurrentVersionID: &versionID,
	}, nil)
	docRepo.On("GetLatestVersion", mock.Anything, docID).Return(&domain.DocumentVersion{
		ID:            versionID,
		DocumentID:    docID,
		VersionNumber: 3,
		SourceHash:    domain.ContentHash(ingestBody),
		CreatedAt:     time.Now(),
	}, nil)

	u := NewIngestDocumentUsecase(docRepo, chunkRepo, passthroughTxManager{}, domain.NewChunker(), encoder)
	err := u.Upsert(context.Background(), "guide.md", ingestBody)

	require.NoError(t, err)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
	chunkRepo.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
	docRepo.AssertNotCalled(t, "CreateVersion", mock.Anything, mock.Anything)
}

func TestIngestUpsert_ChangedContentCreatesNextVersion(t *testing.T) {
	docID := uuid.New()
	versionID := uuid.New()
	docRepo := new(mockDocumentRepo)
	chunkRepo := new(mockChunkRepo)
	encoder := new(mockVectorEncoder)

	docRepo.On("GetBySource", mock.Anything, "guide.md").Return(&domain.DocumentRecord{
		ID:               docID,
		Source:           "guide.md",
		CurrentVersionID: &versionID,
	}, nil)
	docRepo.On("GetLatestVersion", mock.Anything, docID).Return(&domain.DocumentVersion{
		ID:            versionID,
		DocumentID:    docID,
		VersionNumber: 3,
		SourceHash:    "a-different-hash",
	}, nil)
	docRepo.On("CreateVersion", mock.Anything, mock.MatchedBy(func(v *domain.DocumentVersion) bool {
		return v.VersionNumber == 4 && v.DocumentID == docID
	})).Return(nil)
	docRepo.On("UpdateCurrentVersion", mock.Anything, docID, mock.Anything).Return(nil)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(encodeAnything(2), nil)
	chunkRepo.On("BulkInsert", mock.Anything, mock.Anything).Return(nil)

	u := NewIngestDocumentUsecase(docRepo, chunkRepo, passthroughTxManager{}, domain.NewChunker(), encoder)
	err := u.Upsert(context.Background(), "guide.md", ingestBody)

	require.NoError(t, err)
	docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	docRepo.AssertExpectations(t)
}

func TestIngestUpsert_EncoderFailureAbortsTransaction(t *testing.T) {
	docRepo := new(mockDocumentRepo)
	chunkRepo := new(mockChunkRepo)
	encoder := new(mockVectorEncoder)

	docRepo.On("GetBySource", mock.Anything, "guide.md").Return(nil, nil)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	u := NewIngestDocumentUsecase(docRepo, chunkRepo, passthroughTxManager{}, domain.NewChunker(), encoder)
	err := u.Upsert(context.Background(), "guide.md", ingestBody)

	require.Error(t, err)
	chunkRepo.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
	docRepo.AssertNotCalled(t, "UpdateCurrentVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestUpsert_EmptySourceRejected(t *testing.T) {
	u := NewIngestDocumentUsecase(new(mockDocumentRepo), new(mockChunkRepo), passthroughTxManager{}, domain.NewChunker(), new(mockVectorEncoder))

	err := u.Upsert(context.Background(), "", "some content")

	require.Error(t, err)
}
