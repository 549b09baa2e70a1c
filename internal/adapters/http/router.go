package httpadapter

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
	"github.com/kvasnikov/faq-chatbot/internal/core/ports"
	"github.com/kvasnikov/faq-chatbot/internal/observability/metrics"
)

const serviceName = "api"

const adminTokenHeader = "X-Admin-Token"

type Router struct {
	chat  ports.ChatService
	cards ports.KnowledgeCardService

	metrics    *metrics.HTTPServerMetrics
	adminToken string

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	Metrics        *metrics.HTTPServerMetrics
	AdminToken     string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(chat ports.ChatService, cards ports.KnowledgeCardService, options RouterOptions) *Router {
	return &Router{
		chat:           chat,
		cards:          cards,
		metrics:        options.Metrics,
		adminToken:     options.AdminToken,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/tasks/", rt.getTask)
	mux.HandleFunc("/v1/sessions/", rt.sessionRoutes)
	mux.HandleFunc("/v1/knowledge-cards", rt.listCards)
	mux.HandleFunc("/v1/knowledge-cards/", rt.cardRoutes)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = backpressureMiddleware(handler, rt.maxInFlight, 50*time.Millisecond)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question     string `json:"question"`
		SessionID    string `json:"session_id"`
		TopK         int    `json:"top_k"`
		UseWebSearch *bool  `json:"use_web_search"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	taskID, sessionID, err := rt.chat.Submit(r.Context(), ports.AskRequest{
		Question:     req.Question,
		SessionID:    req.SessionID,
		TopK:         req.TopK,
		UseWebSearch: req.UseWebSearch,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordTaskSubmitted(serviceName)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id":    taskID,
		"session_id": sessionID,
		"status":     string(domain.TaskQueued),
	})
}

func (rt *Router) getTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task id is required"})
		return
	}

	task, err := rt.chat.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordTaskPoll(serviceName, string(task.Status))
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) sessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")

	if id, ok := strings.CutSuffix(rest, "/history"); ok {
		rt.sessionHistory(w, r, id)
		return
	}
	rt.endSession(w, r, rest)
}

func (rt *Router) sessionHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	turns, err := rt.chat.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

func (rt *Router) endSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	if err := rt.chat.EndSession(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSessionEnded(serviceName)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) listCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.authorizeAdmin(w, r) {
		return
	}

	cards, err := rt.cards.ListCards(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

func (rt *Router) cardRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/knowledge-cards/")

	if id, ok := strings.CutSuffix(rest, "/review"); ok {
		rt.reviewCard(w, r, id)
		return
	}
	rt.getCard(w, r, rest)
}

func (rt *Router) getCard(w http.ResponseWriter, r *http.Request, cardID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.authorizeAdmin(w, r) {
		return
	}
	if cardID == "" || strings.Contains(cardID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "card id is required"})
		return
	}

	card, err := rt.cards.GetCard(r.Context(), cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (rt *Router) reviewCard(w http.ResponseWriter, r *http.Request, cardID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !rt.authorizeAdmin(w, r) {
		return
	}
	if cardID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "card id is required"})
		return
	}

	var req struct {
		Reviewer string `json:"reviewer"`
		Rating   int    `json:"rating"`
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	card, err := rt.cards.Review(r.Context(), cardID, domain.CardReview{
		Reviewer: req.Reviewer,
		Rating:   req.Rating,
		Decision: domain.ReviewDecision(req.Decision),
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordCardReview(serviceName, req.Decision)
	}
	writeJSON(w, http.StatusOK, card)
}

// authorizeAdmin gates the review surface. With no token configured the
// endpoints are open, which matches single-operator deployments.
func (rt *Router) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if rt.adminToken == "" {
		return true
	}
	provided := r.Header.Get(adminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(rt.adminToken)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin token"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
