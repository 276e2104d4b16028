package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
)

// NewsletterService manages subscriptions. Subscribing an already-active
// email fails with ErrDuplicateSubscription; re-subscribing after an
// unsubscribe reactivates the existing row.
type NewsletterService struct {
	repo    domain.SubscriptionRepository
	mailer  domain.Mailer
	logger  *zap.Logger
	timeNow func() time.Time
}

func NewNewsletterService(repo domain.SubscriptionRepository, mailer domain.Mailer, logger *zap.Logger) *NewsletterService {
	return &NewsletterService{
		repo:    repo,
		mailer:  mailer,
		logger:  logger,
		timeNow: time.Now,
	}
}

func (s *NewsletterService) Subscribe(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email", "must be a valid email address")
	}

	existing, err := s.repo.GetSubscription(ctx, email)
	switch {
	case err == nil && existing.Active:
		return nil, domain.ErrDuplicateSubscription
	case err == nil:
		// Lapsed subscriber coming back.
		if err := s.repo.SetSubscriptionActive(ctx, email, true); err != nil {
			return nil, err
		}
		existing.Active = true
		s.sendWelcome(ctx, email)
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
		sub := &domain.NewsletterSubscription{
			Email:        email,
			Active:       true,
			SubscribedAt: s.timeNow(),
		}
		if err := s.repo.SaveSubscription(ctx, sub); err != nil {
			return nil, err
		}
		s.sendWelcome(ctx, email)
		return sub, nil
	default:
		return nil, err
	}
}

func (s *NewsletterService) Unsubscribe(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if !strings.Contains(email, "@") {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	return s.repo.SetSubscriptionActive(ctx, email, false)
}

// sendWelcome is best-effort: delivery failures never fail the subscription.
func (s *NewsletterService) sendWelcome(ctx context.Context, email string) {
	if err := s.mailer.SendWelcome(ctx, email); err != nil {
		s.logger.Warn("welcome email failed", zap.String("email", email), zap.Error(err))
	}
}
