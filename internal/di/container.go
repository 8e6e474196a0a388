package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdt040499/corrective-rag/internal/adapter/httpapi"
	"github.com/vdt040499/corrective-rag/internal/adapter/ollama"
	"github.com/vdt040499/corrective-rag/internal/adapter/repository"
	"github.com/vdt040499/corrective-rag/internal/adapter/retriever"
	"github.com/vdt040499/corrective-rag/internal/adapter/websearch"
	"github.com/vdt040499/corrective-rag/internal/domain"
	"github.com/vdt040499/corrective-rag/internal/infra/config"
	"github.com/vdt040499/corrective-rag/internal/infra/httpclient"
	"github.com/vdt040499/corrective-rag/internal/usecase"
	"github.com/vdt040499/corrective-rag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	DocRepo   domain.DocumentRepository
	ChunkRepo domain.ChunkRepository
	JobRepo   domain.JobRepository

	AnswerUsecase usecase.AnswerQueryUsecase
	IngestUsecase usecase.IngestDocumentUsecase

	Handler *httpapi.Handler
	Worker  *worker.JobWorker
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Repositories
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Shared HTTP clients with connection pooling
	httpPool := httpclient.NewPool(cfg.Grade.Concurrency)
	llmHTTP := httpPool.Client(time.Duration(cfg.LLM.Timeout) * time.Second)
	webHTTP := httpPool.Client(time.Duration(cfg.Web.Timeout) * time.Second)

	// External clients
	generator := ollama.NewGenerator(cfg.LLM.URL, cfg.LLM.GenerationModel, llmHTTP)
	embedder := ollama.NewEmbedder(cfg.LLM.URL, cfg.LLM.EmbeddingModel, llmHTTP, log)
	searcher := websearch.NewDuckDuckGo(cfg.Web.URL, webHTTP, log)

	// Domain services
	chunker := domain.NewChunker()
	vectorRetriever := retriever.NewVectorRetriever(embedder, chunkRepo, log)

	// Grading
	grader := usecase.NewRelevanceGrader(generator, usecase.GraderConfig{
		Concurrency:   cfg.Grade.Concurrency,
		MaxRetries:    cfg.Grade.MaxRetries,
		RatePerSecond: cfg.Grade.RatePerSecond,
		CacheSize:     cfg.Grade.CacheSize,
		CacheTTL:      time.Duration(cfg.Grade.CacheTTL) * time.Minute,
	}, log)

	policy := usecase.CorrectionPolicy{
		Threshold:       cfg.RAG.RelevanceThreshold,
		MinRelevantDocs: cfg.RAG.MinRelevantDocs,
	}
	assembler := usecase.ContextAssembler{MaxChars: cfg.RAG.MaxContextChars}

	// Usecases
	answerUsecase := usecase.NewAnswerQueryUsecase(
		vectorRetriever, grader, policy, searcher, assembler, generator,
		cfg.RAG.RetrieveK, cfg.Web.Enabled, cfg.Web.MaxResults,
		cfg.LLM.MaxTokens, log,
	)
	ingestUsecase := usecase.NewIngestDocumentUsecase(docRepo, chunkRepo, txManager, chunker, embedder)

	// Transport and worker
	handler := httpapi.NewHandler(answerUsecase, vectorRetriever, jobRepo, docRepo, chunkRepo, httpapi.StatusInfo{
		GenerationModel:    cfg.LLM.GenerationModel,
		EmbeddingModel:     cfg.LLM.EmbeddingModel,
		WebSearchEnabled:   cfg.Web.Enabled,
		RelevanceThreshold: cfg.RAG.RelevanceThreshold,
		ThresholdMode:      policy.ThresholdMode(),
	}, cfg.RAG.RetrieveK, log)
	jobWorker := worker.NewJobWorker(jobRepo, ingestUsecase, log)

	return &ApplicationComponents{
		DocRepo:       docRepo,
		ChunkRepo:     chunkRepo,
		JobRepo:       jobRepo,
		AnswerUsecase: answerUsecase,
		IngestUsecase: ingestUsecase,
		Handler:       handler,
		Worker:        jobWorker,
	}
}
