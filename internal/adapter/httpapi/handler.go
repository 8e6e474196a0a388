package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vdt040499/corrective-rag/internal/domain"
	"github.com/vdt040499/corrective-rag/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const jobTypeIngestDocument = "ingest_document"

// StatusInfo is the static part of the /v1/status payload.
type StatusInfo struct {
	GenerationModel    string
	EmbeddingModel     string
	WebSearchEnabled   bool
	RelevanceThreshold float64
	ThresholdMode      string
}

// Handler exposes the query and ingestion API over HTTP.
type Handler struct {
	answerUsecase usecase.AnswerQueryUsecase
	retriever     domain.Retriever
	jobRepo       domain.JobRepository
	docRepo       domain.DocumentRepository
	chunkRepo     domain.ChunkRepository
	status        StatusInfo
	defaultK      int
	logger        *slog.Logger
}

func NewHandler(
	answerUsecase usecase.AnswerQueryUsecase,
	searchRetriever domain.Retriever,
	jobRepo domain.JobRepository,
	docRepo domain.DocumentRepository,
	chunkRepo domain.ChunkRepository,
	status StatusInfo,
	defaultK int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		answerUsecase: answerUsecase,
		retriever:     searchRetriever,
		jobRepo:       jobRepo,
		docRepo:       docRepo,
		chunkRepo:     chunkRepo,
		status:        status,
		defaultK:      defaultK,
		logger:        logger,
	}
}

// RegisterRoutes mounts the API on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/query", h.AnswerQuery)
	e.POST("/v1/search", h.Search)
	e.POST("/v1/documents", h.IngestDocument)
	e.GET("/v1/status", h.Status)
}

type queryRequest struct {
	Question           string   `json:"question"`
	K                  int      `json:"k,omitempty"`
	RelevanceThreshold *float64 `json:"relevance_threshold,omitempty"`
	UseWebSearch       *bool    `json:"use_web_search,omitempty"`
	ReturnDiagnostics  bool     `json:"return_diagnostics,omitempty"`
}

// AnswerQuery runs the corrective pipeline for one question.
// (POST /v1/query)
func (h *Handler) AnswerQuery(ctx echo.Context) error {
	var req queryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}
	if req.RelevanceThreshold != nil && (*req.RelevanceThreshold < 0 || *req.RelevanceThreshold > 1) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "relevance_threshold must be in [0,1]"})
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerQueryInput{
		Question:           req.Question,
		K:                  req.K,
		RelevanceThreshold: req.RelevanceThreshold,
		UseWebSearch:       req.UseWebSearch,
		ReturnDiagnostics:  req.ReturnDiagnostics,
	})
	if err != nil {
		return h.answerError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, output)
}

// answerError maps pipeline failures to HTTP statuses. Upstream service
// failures are gateway errors, not server bugs.
func (h *Handler) answerError(ctx echo.Context, err error) error {
	var pipeErr *usecase.PipelineError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrCancelled):
		// 499: the client went away, nobody reads this response.
		status = 499
	case errors.Is(err, domain.ErrRetrieval), errors.Is(err, domain.ErrGeneration):
		status = http.StatusBadGateway
	}

	body := map[string]interface{}{"error": err.Error()}
	if errors.As(err, &pipeErr) {
		body["stage"] = pipeErr.Stage
		if pipeErr.Diagnostics != nil {
			body["diagnostics"] = pipeErr.Diagnostics
		}
	}
	return ctx.JSON(status, body)
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchHit struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// Search runs a raw similarity search over the index. No grading, no
// correction, just the nearest chunks with their scores.
// (POST /v1/search)
func (h *Handler) Search(ctx echo.Context) error {
	var req searchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	k := req.K
	if k <= 0 {
		k = h.defaultK
	}

	docs, err := h.retriever.Retrieve(ctx.Request().Context(), req.Query, k)
	if err != nil {
		h.logger.Error("search_failed", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": "search failed"})
	}

	hits := make([]searchHit, len(docs))
	for i, doc := range docs {
		hits[i] = searchHit{Content: doc.Content, Source: doc.Source, Score: doc.Score}
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"query": req.Query,
		"hits":  hits,
	})
}

type ingestRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// IngestDocument queues a document for asynchronous indexing.
// (POST /v1/documents)
func (h *Handler) IngestDocument(ctx echo.Context) error {
	var req ingestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Content) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "source and content are required"})
	}

	now := time.Now()
	job := &domain.IngestJob{
		ID:      uuid.New(),
		JobType: jobTypeIngestDocument,
		Payload: map[string]interface{}{
			"source":  req.Source,
			"content": req.Content,
		},
		Status:    "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		h.logger.Error("ingest_enqueue_failed",
			slog.String("source", req.Source),
			slog.String("error", err.Error()))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue document"})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
		"status": job.Status,
	})
}

// Status reports index size and the configured models.
// (GET /v1/status)
func (h *Handler) Status(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	docCount, err := h.docRepo.Count(reqCtx)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to count documents"})
	}
	chunkCount, err := h.chunkRepo.Count(reqCtx)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to count chunks"})
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"documents":           docCount,
		"chunks":              chunkCount,
		"generation_model":    h.status.GenerationModel,
		"embedding_model":     h.status.EmbeddingModel,
		"web_search_enabled":  h.status.WebSearchEnabled,
		"relevance_threshold": h.status.RelevanceThreshold,
		"threshold_mode":      h.status.ThresholdMode,
	})
}
