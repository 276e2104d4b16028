package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/usecase"
)

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	comparison *usecase.ComparisonService
	news       *usecase.NewsService
	newsletter *usecase.NewsletterService
	alerts     *usecase.AlertService
	intel      *usecase.MarketIntelService
	hub        *Hub
	logger     *zap.Logger
}

func NewServer(
	port int,
	comparison *usecase.ComparisonService,
	news *usecase.NewsService,
	newsletter *usecase.NewsletterService,
	alerts *usecase.AlertService,
	intel *usecase.MarketIntelService,
	hub *Hub,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		comparison: comparison,
		news:       news,
		newsletter: newsletter,
		alerts:     alerts,
		intel:      intel,
		hub:        hub,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Prices
	s.router.HandleFunc("GET /api/prices/comparison", s.handlePriceComparison)
	s.router.HandleFunc("GET /api/prices/current", s.handleCurrentPrices)
	s.router.HandleFunc("GET /api/prices/historical", s.handleHistoricalComparison)

	// Charts
	s.router.HandleFunc("GET /api/charts/bitcoin-history", s.handleChartHistory)

	// Intel widgets
	s.router.HandleFunc("GET /api/network/stats", s.handleNetworkStats)
	s.router.HandleFunc("GET /api/market/data", s.handleMarketData)
	s.router.HandleFunc("GET /api/ai/intelligence", s.handleAIIntelligence)
	s.router.HandleFunc("GET /api/whale/activity", s.handleWhaleActivity)

	// News
	s.router.HandleFunc("GET /api/news", s.handleListNews)
	s.router.HandleFunc("POST /api/news/{id}/view", s.handleNewsView)
	s.router.HandleFunc("POST /api/news/{id}/share", s.handleNewsShare)

	// Newsletter
	s.router.HandleFunc("POST /api/newsletter/subscribe", s.handleNewsletterSubscribe)
	s.router.HandleFunc("POST /api/newsletter/unsubscribe", s.handleNewsletterUnsubscribe)

	// Price alerts
	s.router.HandleFunc("POST /api/price-alerts", s.handleCreateAlert)
	s.router.HandleFunc("GET /api/price-alerts", s.handleListAlerts)

	// WebSocket
	s.router.HandleFunc("GET /ws", s.hub.HandleWS)

	// Health
	s.router.HandleFunc("GET /api/health", s.handleHealth)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
