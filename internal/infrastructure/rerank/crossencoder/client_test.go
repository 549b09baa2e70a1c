package crossencoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScoreMapsResponsesBackToInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "how?" || len(req.Texts) != 3 {
			t.Fatalf("unexpected request: %+v", req)
		}

		// Score-descending order, indexes refer to the input.
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"index": 2, "score": 0.9},
			{"index": 0, "score": 0.4},
			{"index": 1, "score": 0.1},
		})
	}))
	defer server.Close()

	client := New(server.URL, "", 0)
	scores, err := client.Score(context.Background(), "how?", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores[0] != 0.4 || scores[1] != 0.1 || scores[2] != 0.9 {
		t.Fatalf("scores not mapped to input order: %v", scores)
	}
}

func TestScoreEmptyInputSkipsRequest(t *testing.T) {
	client := New("http://unreachable.invalid", "", 0)
	scores, err := client.Score(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores != nil {
		t.Fatalf("expected nil scores for empty input, got %v", scores)
	}
}

func TestScoreCountMismatchIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"index": 0, "score": 0.5}})
	}))
	defer server.Close()

	client := New(server.URL, "", 0)
	if _, err := client.Score(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for score count mismatch")
	}
}

func TestScoreUpstreamErrorIncludesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "", 0)
	if _, err := client.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatalf("expected error for upstream 503")
	}
}
