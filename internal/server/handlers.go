package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/scrypster/keystone/internal/engine"
	"github.com/scrypster/keystone/pkg/types"
)

const (
	// MaxQueryLength bounds the query text accepted by the API.
	MaxQueryLength = 2000

	// MaxHistoryTurns bounds the conversation history kept per request.
	MaxHistoryTurns = 20

	maxBodyBytes = 1 << 16
)

// Answerer produces responses for queries.
type Answerer interface {
	Answer(ctx context.Context, req engine.Request) (*types.Response, error)
}

// Counter reports corpus sizes.
type Counter interface {
	Count(ctx context.Context, kind types.RecordKind) (int, error)
}

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// FollowUpsResponse is the response format for GET /api/followups.
type FollowUpsResponse struct {
	Category  string   `json:"category"`
	FollowUps []string `json:"follow_ups"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	Total  int                      `json:"total"`
	ByKind map[types.RecordKind]int `json:"by_kind"`
}

var statsKinds = []types.RecordKind{
	types.KindQA, types.KindVariation, types.KindInteraction, types.KindPreference, types.KindInsight,
}

type handlers struct {
	assistant Answerer
	counter   Counter
}

// answer handles POST /api/answer.
func (h *handlers) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req engine.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := validateRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp, err := h.assistant.Answer(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "failed to answer query", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func validateRequest(req *engine.Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return errors.New("query is required")
	}
	if len([]rune(req.Query)) > MaxQueryLength {
		return errors.New("query is too long")
	}
	if len(req.History) > MaxHistoryTurns {
		req.History = req.History[len(req.History)-MaxHistoryTurns:]
	}
	return nil
}

// followUps handles GET /api/followups?category=.
func (h *handlers) followUps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	category := engine.ResolveFollowUpCategory(r.URL.Query().Get("category"))
	respondJSON(w, http.StatusOK, FollowUpsResponse{
		Category:  category,
		FollowUps: engine.Suggest(category),
	})
}

// stats handles GET /api/stats.
func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	out := StatsResponse{ByKind: make(map[types.RecordKind]int, len(statsKinds))}
	for _, kind := range statsKinds {
		n, err := h.counter.Count(r.Context(), kind)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to count records", err)
			return
		}
		out.ByKind[kind] = n
		out.Total += n
	}
	respondJSON(w, http.StatusOK, out)
}

// health handles GET /healthz. No auth required.
func health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// respondJSON writes data as a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; nothing useful can be done on failure.
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]any{"error": err.Error()}
	}
	respondJSON(w, statusCode, errResp)
}
