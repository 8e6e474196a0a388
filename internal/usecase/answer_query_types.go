package usecase

import (
	"context"

	"github.com/vdt040499/corrective-rag/internal/domain"
)

// InsufficientInformationAnswer is returned without calling the generator
// when neither relevant local documents nor web content survived assembly.
const InsufficientInformationAnswer = "I don't have enough relevant information to answer this question."

// AnswerQueryInput encapsulates the parameters that drive one corrective
// answer request. Zero values fall back to configured defaults.
type AnswerQueryInput struct {
	Question string
	// K is the number of documents to retrieve.
	K int
	// RelevanceThreshold overrides the configured threshold when non-nil.
	RelevanceThreshold *float64
	// UseWebSearch overrides the configured web-search enablement when non-nil.
	UseWebSearch *bool
	// ReturnDiagnostics attaches the full pipeline trace to the output.
	ReturnDiagnostics bool
}

// SourceRef is one provenance entry of the final answer.
type SourceRef struct {
	Source string      `json:"source"`
	Kind   SegmentKind `json:"kind"`
}

// AnswerQueryOutput is the normalized answer returned to API clients.
type AnswerQueryOutput struct {
	Answer      string       `json:"answer"`
	Sources     []SourceRef  `json:"sources"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// GradeEntry is the diagnostics view of one judge verdict.
type GradeEntry struct {
	DocumentID     string            `json:"document_id"`
	ContentPreview string            `json:"content_preview"`
	RetrievalScore float32           `json:"retrieval_score"`
	Label          domain.GradeLabel `json:"label"`
	RawResponse    string            `json:"raw_response"`
}

// Diagnostics is the lossless record of every decision made during a single
// pipeline run. It is complete whether the run succeeded or failed partway.
type Diagnostics struct {
	RunID string `json:"run_id"`

	TotalRetrieved  int     `json:"total_retrieved"`
	RelevantCount   int     `json:"relevant_count"`
	IrrelevantCount int     `json:"irrelevant_count"`
	RelevanceRatio  float64 `json:"relevance_ratio"`

	ThresholdUsed float64 `json:"threshold_used"`
	ThresholdMode string  `json:"threshold_mode"`

	Grades []GradeEntry `json:"grading_results"`

	FallbackTriggered bool                  `json:"fallback_triggered"`
	FallbackReason    domain.FallbackReason `json:"fallback_reason"`

	UsedWebSearch      bool             `json:"used_web_search"`
	WebSearchSucceeded bool             `json:"web_search_succeeded"`
	WebResult          domain.WebResult `json:"web_result"`

	ContextSegments  []ContextSegment `json:"context_segments"`
	ContextTruncated bool             `json:"context_truncated"`
	DroppedSegments  []ContextSegment `json:"dropped_segments,omitempty"`

	ElapsedMs int64 `json:"elapsed_ms"`
}

// AnswerQueryUsecase is the orchestrator contract: the full
// retrieve-grade-decide-assemble-generate pipeline.
type AnswerQueryUsecase interface {
	Execute(ctx context.Context, input AnswerQueryInput) (*AnswerQueryOutput, error)
}
