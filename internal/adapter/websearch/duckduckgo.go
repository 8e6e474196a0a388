package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vdt040499/corrective-rag/internal/domain"
)

// DefaultBaseURL is the DuckDuckGo Instant Answer endpoint.
const DefaultBaseURL = "https://api.duckduckgo.com"

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

type instantAnswer struct {
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

// DuckDuckGo queries the Instant Answer API. The abstract comes first, then
// related topics, up to the caller's snippet limit.
type DuckDuckGo struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewDuckDuckGo(baseURL string, client *http.Client, logger *slog.Logger) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &DuckDuckGo{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Logger:  logger,
	}
}

// Search returns up to maxResults snippets for the query. An empty result set
// is not an error; the caller decides what an empty fallback means.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]domain.WebSnippet, error) {
	if maxResults <= 0 {
		maxResults = 3
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	reqURL := fmt.Sprintf("%s/?%s", d.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	snippets := collectSnippets(answer, maxResults)
	d.Logger.Info("web_search_provider_completed",
		slog.String("query", query),
		slog.Int("snippets", len(snippets)))
	return snippets, nil
}

func collectSnippets(answer instantAnswer, limit int) []domain.WebSnippet {
	snippets := make([]domain.WebSnippet, 0, limit)
	if text := strings.TrimSpace(answer.AbstractText); text != "" {
		snippets = append(snippets, domain.WebSnippet{Text: text, URL: answer.AbstractURL})
	}
	appendTopics(&snippets, answer.RelatedTopics, limit)
	if len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets
}

// appendTopics flattens the topic tree depth-first. Category nodes carry their
// entries in a nested Topics list.
func appendTopics(snippets *[]domain.WebSnippet, topics []relatedTopic, limit int) {
	for _, topic := range topics {
		if len(*snippets) >= limit {
			return
		}
		if len(topic.Topics) > 0 {
			appendTopics(snippets, topic.Topics, limit)
			continue
		}
		text := strings.TrimSpace(topic.Text)
		if text == "" {
			continue
		}
		*snippets = append(*snippets, domain.WebSnippet{Text: text, URL: topic.FirstURL})
	}
}

var _ domain.WebSearcher = (*DuckDuckGo)(nil)
