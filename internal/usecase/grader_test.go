package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *mockLLMClient) Version() string {
	return "mock-llm"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGraderConfig() GraderConfig {
	return GraderConfig{
		Concurrency:   4,
		MaxRetries:    0,
		RatePerSecond: 1000,
	}
}

func promptContaining(fragment string) interface{} {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, fragment)
	})
}

func verdict(score string) *domain.LLMResponse {
	return &domain.LLMResponse{Text: fmt.Sprintf(`{"score": %q}`, score), Done: true}
}

func makeDocs(n int) []domain.Document {
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			ID:      uuid.New(),
			Content: fmt.Sprintf("document body number %d with enough text to matter", i),
			Source:  fmt.Sprintf("doc-%d.md", i),
			Score:   0.9 - float32(i)*0.1,
		}
	}
	return docs
}

func TestGradeAll_PreservesRetrievalOrder(t *testing.T) {
	docs := makeDocs(6)
	llm := new(mockLLMClient)
	for i, doc := range docs {
		score := "yes"
		if i%2 == 1 {
			score = "no"
		}
		// The earliest documents respond slowest, so completion order is
		// the reverse of submission order.
		delay := time.Duration(len(docs)-i) * 5 * time.Millisecond
		llm.On("Generate", mock.Anything, promptContaining(doc.Content), gradeMaxTokens).
			After(delay).
			Return(verdict(score), nil)
	}

	grader := NewRelevanceGrader(llm, testGraderConfig(), testLogger())
	results, err := grader.GradeAll(context.Background(), "what is in the documents?", docs)

	require.NoError(t, err)
	require.Len(t, results, len(docs))
	for i, result := range results {
		assert.Equal(t, docs[i].ID, result.Document.ID, "result %d out of order", i)
		if i%2 == 0 {
			assert.Equal(t, domain.GradeRelevant, result.Label)
		} else {
			assert.Equal(t, domain.GradeIrrelevant, result.Label)
		}
	}
}

func TestGradeAll_MalformedVerdictBecomesParseFailed(t *testing.T) {
	docs := makeDocs(1)
	llm := new(mockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, gradeMaxTokens).
		Return(&domain.LLMResponse{Text: "the document looks relevant to me", Done: true}, nil)

	grader := NewRelevanceGrader(llm, testGraderConfig(), testLogger())
	results, err := grader.GradeAll(context.Background(), "question", docs)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.GradeParseFailed, results[0].Label)
	assert.False(t, results[0].Relevant())
}

func TestGradeAll_JudgeErrorExhaustsRetries(t *testing.T) {
	docs := makeDocs(1)
	llm := new(mockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, gradeMaxTokens).
		Return(nil, fmt.Errorf("connection refused"))

	cfg := testGraderConfig()
	cfg.MaxRetries = 1
	grader := NewRelevanceGrader(llm, cfg, testLogger())
	results, err := grader.GradeAll(context.Background(), "question", docs)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.GradeParseFailed, results[0].Label)
	assert.Contains(t, results[0].RawResponse, "judge unavailable")
	llm.AssertNumberOfCalls(t, "Generate", 2)
}

func TestGradeAll_RetryRecoversAfterTransientError(t *testing.T) {
	docs := makeDocs(1)
	llm := new(mockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, gradeMaxTokens).
		Return(nil, fmt.Errorf("timeout")).Once()
	llm.On("Generate", mock.Anything, mock.Anything, gradeMaxTokens).
		Return(verdict("yes"), nil).Once()

	cfg := testGraderConfig()
	cfg.MaxRetries = 2
	grader := NewRelevanceGrader(llm, cfg, testLogger())
	results, err := grader.GradeAll(context.Background(), "question", docs)

	require.NoError(t, err)
	assert.Equal(t, domain.GradeRelevant, results[0].Label)
	llm.AssertNumberOfCalls(t, "Generate", 2)
}

func TestGradeAll_CancellationAborts(t *testing.T) {
	docs := makeDocs(4)
	ctx, cancel := context.WithCancel(context.Background())

	llm := new(mockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, gradeMaxTokens).
		Run(func(args mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	grader := NewRelevanceGrader(llm, testGraderConfig(), testLogger())
	results, err := grader.GradeAll(ctx, "question", docs)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestGradeAll_CacheShortCircuitsRepeatVerdicts(t *testing.T) {
	docs := makeDocs(1)
	llm := new(mockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, gradeMaxTokens).
		Return(verdict("no"), nil).Once()

	cfg := testGraderConfig()
	cfg.CacheSize = 16
	cfg.CacheTTL = time.Minute
	grader := NewRelevanceGrader(llm, cfg, testLogger())

	first, err := grader.GradeAll(context.Background(), "same question", docs)
	require.NoError(t, err)
	second, err := grader.GradeAll(context.Background(), "same question", docs)
	require.NoError(t, err)

	assert.Equal(t, domain.GradeIrrelevant, first[0].Label)
	assert.Equal(t, first[0].Label, second[0].Label)
	llm.AssertNumberOfCalls(t, "Generate", 1)
}

func TestGradeAll_EmptyDocumentList(t *testing.T) {
	llm := new(mockLLMClient)
	grader := NewRelevanceGrader(llm, testGraderConfig(), testLogger())

	results, err := grader.GradeAll(context.Background(), "question", nil)

	require.NoError(t, err)
	assert.Empty(t, results)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.GradeLabel
	}{
		{"plain yes", `{"score": "yes"}`, domain.GradeRelevant},
		{"plain no", `{"score": "no"}`, domain.GradeIrrelevant},
		{"uppercase", `{"score": "YES"}`, domain.GradeRelevant},
		{"surrounding prose", "Sure, here is the verdict: {\"score\": \"no\"} hope that helps", domain.GradeIrrelevant},
		{"unexpected value", `{"score": "maybe"}`, domain.GradeParseFailed},
		{"missing key", `{"relevant": true}`, domain.GradeParseFailed},
		{"not json", "yes", domain.GradeParseFailed},
		{"empty", "", domain.GradeParseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, _ := parseVerdict(tt.raw)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestTruncate_CutsOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	// Two-byte runes, so a byte cut at 5 would land mid-rune.
	long := strings.Repeat("é", 10)
	got := truncate(long, 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 2)+"...", got)
}
