package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes: validation errors are
// 400, duplicate subscriptions 409, missing rows 404 and no-data 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateSubscription):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoPriceData):
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Prices

func (s *Server) handlePriceComparison(w http.ResponseWriter, r *http.Request) {
	comparison, err := s.comparison.GetPriceComparison(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, comparison)
}

func (s *Server) handleCurrentPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.comparison.GetCurrentPrices(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prices)
}

func (s *Server) handleHistoricalComparison(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("timestamp")
	if raw == "" {
		s.writeError(w, domain.NewValidationError("timestamp", "query parameter is required"))
		return
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.writeError(w, domain.NewValidationError("timestamp", "must be an ISO8601 timestamp"))
		return
	}

	comparison, err := s.comparison.GetHistoricalComparison(r.Context(), ts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, comparison)
}

// Charts

func (s *Server) handleChartHistory(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "1d"
	}
	points, err := s.comparison.GetChartHistory(r.Context(), rng)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

// Intel widgets

func (s *Server) handleNetworkStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.intel.GetNetworkStats(r.Context()))
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.intel.GetMarketData(r.Context()))
}

func (s *Server) handleAIIntelligence(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.intel.GetAIIntelligence(r.Context()))
}

func (s *Server) handleWhaleActivity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.intel.GetWhaleActivity(r.Context()))
}

// News

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	articles, err := s.news.ListNews(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if articles == nil {
		articles = []*domain.NewsArticle{}
	}
	s.writeJSON(w, http.StatusOK, articles)
}

func (s *Server) newsID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("id", "must be numeric")
	}
	return id, nil
}

func (s *Server) handleNewsView(w http.ResponseWriter, r *http.Request) {
	id, err := s.newsID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.news.RecordView(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNewsShare(w http.ResponseWriter, r *http.Request) {
	id, err := s.newsID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.news.RecordShare(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Newsletter

func (s *Server) handleNewsletterSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewValidationError("body", "must be JSON with an email field"))
		return
	}
	sub, err := s.newsletter.Subscribe(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleNewsletterUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewValidationError("body", "must be JSON with an email field"))
		return
	}
	if err := s.newsletter.Unsubscribe(r.Context(), req.Email); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// Price alerts

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string  `json:"email"`
		TargetPrice float64 `json:"targetPrice"`
		Type        string  `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewValidationError("body", "must be JSON"))
		return
	}
	alert, err := s.alerts.Create(r.Context(), req.Email, req.TargetPrice, req.Type)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.alerts.ListByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if alerts == nil {
		alerts = []*domain.PriceAlert{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

// Health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}
