package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

// Client reads the chunk collection maintained by the ingestion pipeline.
// This service never writes points; concurrent reads need no coordination.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return nil, fmt.Errorf("qdrant search status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		originID := getStringPayload(r.Payload, "chunk_id")
		if originID == "" {
			originID = fmt.Sprintf("%v", r.ID)
		}
		out = append(out, domain.Candidate{
			Text:       getStringPayload(r.Payload, "text"),
			SourceKind: domain.SourceVector,
			OriginID:   originID,
			Title:      firstStringPayload(r.Payload, "title", "filename", "source"),
			Section:    getStringPayload(r.Payload, "section"),
			URL:        getStringPayload(r.Payload, "url"),
			RawScore:   r.Score,
		})
	}
	return out, nil
}

func firstStringPayload(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := getStringPayload(payload, key); v != "" {
			return v
		}
	}
	return ""
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
