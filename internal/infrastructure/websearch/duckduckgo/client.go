package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

const defaultBaseURL = "https://api.duckduckgo.com"

// Client queries the DuckDuckGo instant-answer API. Web search is an
// optional evidence source: every error path here is absorbed by the
// retriever, so the client only has to be honest about failures, not
// resilient to them.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = 3
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return nil, fmt.Errorf("duckduckgo status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("duckduckgo status: %s", resp.Status)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode duckduckgo response: %w", err)
	}
	return normalizeResults(answer, limit), nil
}

// normalizeResults flattens the instant answer into web candidates: the
// abstract first, then related topics, deduplicated by URL.
func normalizeResults(answer instantAnswer, limit int) []domain.Candidate {
	out := make([]domain.Candidate, 0, limit)
	seen := make(map[string]struct{}, limit)

	add := func(title, text, resultURL string) {
		text = strings.TrimSpace(text)
		if text == "" || len(out) >= limit {
			return
		}
		origin := resultURL
		if origin == "" {
			origin = "ddg:" + text
		}
		if _, dup := seen[origin]; dup {
			return
		}
		seen[origin] = struct{}{}
		if title == "" {
			title = "Web Search Result"
		}
		out = append(out, domain.Candidate{
			Text:       text,
			SourceKind: domain.SourceWeb,
			OriginID:   origin,
			Title:      title,
			URL:        resultURL,
		})
	}

	add(answer.Heading, answer.AbstractText, answer.AbstractURL)
	for _, topic := range flattenTopics(answer.RelatedTopics) {
		add(topicTitle(topic), topic.Text, topic.FirstURL)
	}
	return out
}

func flattenTopics(topics []relatedTopic) []relatedTopic {
	out := make([]relatedTopic, 0, len(topics))
	for _, topic := range topics {
		if len(topic.Topics) > 0 {
			out = append(out, flattenTopics(topic.Topics)...)
			continue
		}
		out = append(out, topic)
	}
	return out
}

func topicTitle(topic relatedTopic) string {
	// Topic text reads "Title - description"; use the head as the title.
	if head, _, found := strings.Cut(topic.Text, " - "); found {
		return head
	}
	return "Web Search Result"
}
