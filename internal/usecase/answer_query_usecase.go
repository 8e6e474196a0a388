package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/google/uuid"
)

// Pipeline stage names, used for failure reporting.
const (
	StageRetrieve  = "retrieve"
	StageGrade     = "grade"
	StageDecide    = "decide"
	StageWebSearch = "web_search"
	StageAssemble  = "assemble"
	StageGenerate  = "generate"
)

// PipelineError is a fatal pipeline failure. It names the stage that failed
// and carries the diagnostics accumulated up to that point.
type PipelineError struct {
	Stage       string
	Err         error
	Diagnostics *Diagnostics
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type answerQueryUsecase struct {
	retriever       domain.Retriever
	grader          *RelevanceGrader
	policy          CorrectionPolicy
	searcher        domain.WebSearcher
	assembler       ContextAssembler
	llm             domain.LLMClient
	defaultK        int
	webEnabled      bool
	webMaxResults   int
	maxAnswerTokens int
	logger          *slog.Logger
}

// NewAnswerQueryUsecase wires the corrective pipeline: retrieve, grade,
// decide, optionally search the web, assemble, generate.
func NewAnswerQueryUsecase(
	retriever domain.Retriever,
	grader *RelevanceGrader,
	policy CorrectionPolicy,
	searcher domain.WebSearcher,
	assembler ContextAssembler,
	llm domain.LLMClient,
	defaultK int,
	webEnabled bool,
	webMaxResults int,
	maxAnswerTokens int,
	logger *slog.Logger,
) AnswerQueryUsecase {
	if defaultK <= 0 {
		defaultK = 4
	}
	if webMaxResults <= 0 {
		webMaxResults = 3
	}
	return &answerQueryUsecase{
		retriever:       retriever,
		grader:          grader,
		policy:          policy,
		searcher:        searcher,
		assembler:       assembler,
		llm:             llm,
		defaultK:        defaultK,
		webEnabled:      webEnabled,
		webMaxResults:   webMaxResults,
		maxAnswerTokens: maxAnswerTokens,
		logger:          logger,
	}
}

// Execute runs the pipeline strictly in stage order. Each stage writes its
// artifacts into the diagnostics before the next stage starts, so a failure
// at any point still surfaces everything decided so far.
func (u *answerQueryUsecase) Execute(ctx context.Context, input AnswerQueryInput) (*AnswerQueryOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	start := time.Now()

	k := input.K
	if k <= 0 {
		k = u.defaultK
	}
	webEnabled := u.webEnabled
	if input.UseWebSearch != nil {
		webEnabled = *input.UseWebSearch
	}
	threshold := u.policy.EffectiveThreshold(k)
	thresholdMode := u.policy.ThresholdMode()
	if input.RelevanceThreshold != nil {
		threshold = *input.RelevanceThreshold
		thresholdMode = "fixed"
	}

	diag := &Diagnostics{
		RunID:         uuid.NewString(),
		ThresholdUsed: threshold,
		ThresholdMode: thresholdMode,
	}

	fail := func(stage string, err error) (*AnswerQueryOutput, error) {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}
		diag.ElapsedMs = time.Since(start).Milliseconds()
		u.logger.Warn("pipeline_failed",
			slog.String("run_id", diag.RunID),
			slog.String("stage", stage),
			slog.String("error", err.Error()))
		return nil, &PipelineError{Stage: stage, Err: err, Diagnostics: diag}
	}

	// Retrieved
	docs, err := u.retriever.Retrieve(ctx, input.Question, k)
	if err != nil {
		return fail(StageRetrieve, fmt.Errorf("%w: %v", domain.ErrRetrieval, err))
	}
	diag.TotalRetrieved = len(docs)
	u.logger.Info("retrieval_completed",
		slog.String("run_id", diag.RunID),
		slog.Int("requested", k),
		slog.Int("retrieved", len(docs)))

	// Graded
	grades, err := u.grader.GradeAll(ctx, input.Question, docs)
	if err != nil {
		return fail(StageGrade, err)
	}
	report := domain.NewRelevanceReport(grades)
	diag.RelevantCount = report.RelevantCount
	diag.IrrelevantCount = report.IrrelevantCount
	diag.RelevanceRatio = report.Ratio
	diag.Grades = make([]GradeEntry, len(grades))
	for i, g := range grades {
		diag.Grades[i] = GradeEntry{
			DocumentID:     g.Document.ID.String(),
			ContentPreview: truncate(g.Document.Content, 100),
			RetrievalScore: g.Document.Score,
			Label:          g.Label,
			RawResponse:    g.RawResponse,
		}
	}

	// Decided
	decision := u.policy.Decide(report, threshold, webEnabled)
	diag.FallbackTriggered = decision.Triggered
	diag.FallbackReason = decision.Reason
	u.logger.Info("correction_decided",
		slog.String("run_id", diag.RunID),
		slog.Float64("ratio", report.Ratio),
		slog.Float64("threshold", threshold),
		slog.Bool("triggered", decision.Triggered),
		slog.String("reason", string(decision.Reason)))

	// WebAugmented
	var webResult domain.WebResult
	if decision.Triggered && webEnabled {
		webResult = u.searchWeb(ctx, input.Question, diag.RunID)
		if ctx.Err() != nil {
			return fail(StageWebSearch, ctx.Err())
		}
	}
	diag.UsedWebSearch = webResult.Attempted
	diag.WebSearchSucceeded = webResult.Succeeded
	diag.WebResult = webResult

	// Assembled
	assembled := u.assembler.Assemble(grades, webResult)
	diag.ContextSegments = assembled.Segments
	diag.ContextTruncated = assembled.Truncated
	diag.DroppedSegments = assembled.DroppedSegments

	// Answered
	answer, err := u.generate(ctx, input.Question, assembled)
	if err != nil {
		return fail(StageGenerate, err)
	}

	diag.ElapsedMs = time.Since(start).Milliseconds()

	output := &AnswerQueryOutput{
		Answer:  answer,
		Sources: buildSources(assembled),
	}
	if input.ReturnDiagnostics {
		output.Diagnostics = diag
	}
	return output, nil
}

// searchWeb runs the fallback search and folds any failure into an explicit
// unsuccessful WebResult. Only the caller's cancellation is fatal.
func (u *answerQueryUsecase) searchWeb(ctx context.Context, question, runID string) domain.WebResult {
	result := domain.WebResult{Attempted: true}

	snippets, err := u.searcher.Search(ctx, question, u.webMaxResults)
	if err != nil {
		result.Err = err.Error()
		u.logger.Warn("web_search_failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
		return result
	}

	result.Succeeded = true
	result.Snippets = snippets
	u.logger.Info("web_search_completed",
		slog.String("run_id", runID),
		slog.Int("snippets", len(snippets)))
	return result
}

// generate produces the final answer, short-circuiting to the sentinel when
// assembly left nothing to answer from.
func (u *answerQueryUsecase) generate(ctx context.Context, question string, assembled AssembledContext) (string, error) {
	if assembled.Empty() {
		return InsufficientInformationAnswer, nil
	}

	prompt := BuildAnswerPrompt(question, assembled.Text())
	resp, err := u.llm.Generate(ctx, prompt, u.maxAnswerTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}
	return strings.TrimSpace(resp.Text), nil
}

func buildSources(assembled AssembledContext) []SourceRef {
	seen := make(map[SourceRef]struct{}, len(assembled.Segments))
	sources := make([]SourceRef, 0, len(assembled.Segments))
	for _, seg := range assembled.Segments {
		if seg.Source == "" {
			continue
		}
		ref := SourceRef{Source: seg.Source, Kind: seg.Kind}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		sources = append(sources, ref)
	}
	return sources
}
