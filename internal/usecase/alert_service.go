package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
)

// AlertService stores price alerts and fires them against the live price.
type AlertService struct {
	repo    domain.AlertRepository
	mailer  domain.Mailer
	logger  *zap.Logger
	timeNow func() time.Time
}

func NewAlertService(repo domain.AlertRepository, mailer domain.Mailer, logger *zap.Logger) *AlertService {
	return &AlertService{
		repo:    repo,
		mailer:  mailer,
		logger:  logger,
		timeNow: time.Now,
	}
}

func (s *AlertService) Create(ctx context.Context, email string, targetPrice float64, alertType string) (*domain.PriceAlert, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email", "must be a valid email address")
	}
	if targetPrice <= 0 {
		return nil, domain.NewValidationError("targetPrice", "must be greater than zero")
	}
	t := domain.AlertType(alertType)
	if t != domain.AlertAbove && t != domain.AlertBelow {
		return nil, domain.NewValidationError("type", `must be "above" or "below"`)
	}

	alert := &domain.PriceAlert{
		Email:       email,
		TargetPrice: targetPrice,
		Type:        t,
		Active:      true,
		CreatedAt:   s.timeNow(),
	}
	if err := s.repo.SaveAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) ListByEmail(ctx context.Context, email string) ([]*domain.PriceAlert, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email", "must be a valid email address")
	}
	return s.repo.ListAlertsByEmail(ctx, email)
}

// CheckAlerts fires every active alert crossed by the current price. Runs on
// the broadcast cadence; a zero price (cache never filled) is a no-op.
func (s *AlertService) CheckAlerts(ctx context.Context, currentPrice float64) int {
	if currentPrice <= 0 {
		return 0
	}

	alerts, err := s.repo.ListActiveAlerts(ctx)
	if err != nil {
		s.logger.Error("failed to list active alerts", zap.Error(err))
		return 0
	}

	fired := 0
	for _, a := range alerts {
		crossed := (a.Type == domain.AlertAbove && currentPrice >= a.TargetPrice) ||
			(a.Type == domain.AlertBelow && currentPrice <= a.TargetPrice)
		if !crossed {
			continue
		}
		if err := s.repo.MarkAlertTriggered(ctx, a.ID); err != nil {
			s.logger.Error("failed to mark alert triggered", zap.Int64("id", a.ID), zap.Error(err))
			continue
		}
		if err := s.mailer.SendAlertTriggered(ctx, a, currentPrice); err != nil {
			s.logger.Warn("alert email failed", zap.String("email", a.Email), zap.Error(err))
		}
		s.logger.Info("price alert fired",
			zap.Int64("id", a.ID),
			zap.Float64("target", a.TargetPrice),
			zap.Float64("price", currentPrice))
		fired++
	}
	return fired
}
