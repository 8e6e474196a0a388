package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	gradeMaxTokens      = 32
	gradeInitialBackoff = 250 * time.Millisecond
)

// GraderConfig tunes the grading fan-out.
type GraderConfig struct {
	// Concurrency bounds the number of in-flight judge calls per query.
	Concurrency int
	// MaxRetries bounds retries after a judge transport failure.
	MaxRetries int
	// RatePerSecond caps judge calls across all concurrent queries.
	RatePerSecond float64
	// CacheSize and CacheTTL control the shared verdict cache. A size of 0
	// disables caching.
	CacheSize int
	CacheTTL  time.Duration
}

type cachedVerdict struct {
	label domain.GradeLabel
	raw   string
}

// RelevanceGrader classifies retrieved documents against the query with one
// independent judge call per document. Calls fan out with bounded concurrency
// and results are reassembled in the original retrieval order.
type RelevanceGrader struct {
	llm         domain.LLMClient
	limiter     *rate.Limiter
	cache       *expirable.LRU[string, cachedVerdict]
	concurrency int
	maxRetries  int
	logger      *slog.Logger
}

// NewRelevanceGrader wires a grader around the judge client. The rate limiter
// and verdict cache are owned by the grader and shared across queries.
func NewRelevanceGrader(llm domain.LLMClient, cfg GraderConfig, logger *slog.Logger) *RelevanceGrader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 8
	}
	var cache *expirable.LRU[string, cachedVerdict]
	if cfg.CacheSize > 0 {
		cache = expirable.NewLRU[string, cachedVerdict](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return &RelevanceGrader{
		llm:         llm,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Concurrency),
		cache:       cache,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
	}
}

// GradeAll grades every document concurrently and returns one GradeResult per
// document in retrieval order. It fails only on context cancellation; judge
// parse failures and exhausted retries degrade to ParseFailed verdicts.
func (g *RelevanceGrader) GradeAll(ctx context.Context, question string, docs []domain.Document) ([]domain.GradeResult, error) {
	if len(docs) == 0 {
		return []domain.GradeResult{}, nil
	}

	start := time.Now()
	g.logger.Info("grading_started",
		slog.Int("document_count", len(docs)),
		slog.Int("concurrency", g.concurrency))

	results := make([]domain.GradeResult, len(docs))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, doc := range docs {
		eg.Go(func() error {
			result, err := g.gradeOne(gctx, question, doc)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := domain.NewRelevanceReport(results)
	g.logger.Info("grading_completed",
		slog.Int("relevant", report.RelevantCount),
		slog.Int("irrelevant", report.IrrelevantCount),
		slog.Float64("ratio", report.Ratio),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return results, nil
}

// gradeOne issues the judge call for a single document. The only error it
// returns is context cancellation; every other failure becomes a verdict.
func (g *RelevanceGrader) gradeOne(ctx context.Context, question string, doc domain.Document) (domain.GradeResult, error) {
	cacheKey := domain.ContentHash(question + "\x00" + doc.Content)
	if g.cache != nil {
		if hit, ok := g.cache.Get(cacheKey); ok {
			return domain.GradeResult{Document: doc, Label: hit.label, RawResponse: hit.raw}, nil
		}
	}

	raw, err := g.callJudge(ctx, question, doc)
	if err != nil {
		if ctx.Err() != nil {
			return domain.GradeResult{}, ctx.Err()
		}
		g.logger.Warn("judge_unavailable",
			slog.String("document_id", doc.ID.String()),
			slog.String("error", err.Error()))
		return domain.GradeResult{
			Document:    doc,
			Label:       domain.GradeParseFailed,
			RawResponse: "judge unavailable: " + err.Error(),
		}, nil
	}

	label, ok := parseVerdict(raw)
	if !ok {
		g.logger.Warn("judge_response_unparseable",
			slog.String("document_id", doc.ID.String()),
			slog.String("raw", truncate(raw, 200)))
	}

	if g.cache != nil {
		g.cache.Add(cacheKey, cachedVerdict{label: label, raw: raw})
	}
	return domain.GradeResult{Document: doc, Label: label, RawResponse: raw}, nil
}

// callJudge performs the rate-limited judge call with bounded retries and
// exponential backoff on transport failures.
func (g *RelevanceGrader) callJudge(ctx context.Context, question string, doc domain.Document) (string, error) {
	prompt := BuildGradePrompt(question, doc.Content)

	backoff := gradeInitialBackoff
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := g.llm.Generate(ctx, prompt, gradeMaxTokens)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		return resp.Text, nil
	}
	return "", lastErr
}

type judgeVerdict struct {
	Score string `json:"score"`
}

// parseVerdict decodes the strict {"score":"yes"|"no"} judge output. Anything
// else yields ParseFailed, which downstream counts as irrelevant.
func parseVerdict(raw string) (domain.GradeLabel, bool) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return domain.GradeParseFailed, false
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &verdict); err != nil {
		return domain.GradeParseFailed, false
	}

	switch strings.ToLower(strings.TrimSpace(verdict.Score)) {
	case "yes":
		return domain.GradeRelevant, true
	case "no":
		return domain.GradeIrrelevant, true
	default:
		return domain.GradeParseFailed, false
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:runeBoundary(s, limit)] + "..."
}

// runeBoundary walks limit back to the start of a UTF-8 rune so previews and
// context cuts never slice a multibyte character in half.
func runeBoundary(s string, limit int) int {
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return limit
}
