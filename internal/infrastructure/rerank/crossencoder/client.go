package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client scores (question, passage) pairs against a cross-encoder model
// served over HTTP (text-embeddings-inference style /rerank). The returned
// scores are the sole ranking key downstream; this client preserves input
// order so callers can zip scores back onto their candidates.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Score(ctx context.Context, question string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"query": question,
		"texts": texts,
	}
	if c.model != "" {
		request["model"] = c.model
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("rerank status: %s", resp.Status)
	}

	// The service answers with one {index, score} entry per input text,
	// ordered by score. Map back to input order.
	var decoded []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(decoded) != len(texts) {
		return nil, fmt.Errorf("rerank returned %d scores for %d texts", len(decoded), len(texts))
	}

	scores := make([]float64, len(texts))
	for _, entry := range decoded {
		if entry.Index < 0 || entry.Index >= len(scores) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", entry.Index)
		}
		scores[entry.Index] = entry.Score
	}
	return scores, nil
}
