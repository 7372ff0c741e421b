package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/ranking"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("query", req.Query), zap.Int("files", req.Files), zap.Int("sentences", req.Sentences))
	answer, err := s.engine.Ask(r.Context(), &req)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, answer)
	case errors.Is(err, ranking.ErrInvalidCount):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, qa.ErrNotLoaded):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap == nil {
		s.respondError(w, http.StatusServiceUnavailable, qa.ErrNotLoaded.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"corpus":          snap.Root,
		"documents":       snap.Documents.Len(),
		"vocabulary":      snap.Vocabulary(),
		"skipped":         snap.Skipped,
		"built_at":        snap.BuiltAt,
		"history_enabled": s.history != nil,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "history not enabled")
		return
	}
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	ctx := r.Context()
	entries, err := s.history.ListAnswers(ctx, offset, limit)
	if err != nil {
		s.logger.Error("history: list answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.history.CountAnswers(ctx)
	if err != nil {
		s.logger.Error("history: count answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"answers": entries,
		"total":   total,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
