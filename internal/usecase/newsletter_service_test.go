package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/bitcompare/bitcompare/internal/domain"
)

// MockSubscriptionRepo
type MockSubscriptionRepo struct {
	subs   map[string]*domain.NewsletterSubscription
	nextID int64
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: make(map[string]*domain.NewsletterSubscription)}
}

func (m *MockSubscriptionRepo) SaveSubscription(ctx context.Context, sub *domain.NewsletterSubscription) error {
	m.nextID++
	sub.ID = m.nextID
	stored := *sub
	m.subs[sub.Email] = &stored
	return nil
}

func (m *MockSubscriptionRepo) GetSubscription(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	sub, ok := m.subs[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *MockSubscriptionRepo) SetSubscriptionActive(ctx context.Context, email string, active bool) error {
	sub, ok := m.subs[email]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Active = active
	return nil
}

// MockMailer counts sends.
type MockMailer struct {
	Welcomes int
	Alerts   int
	Err      error
}

func (m *MockMailer) SendWelcome(ctx context.Context, email string) error {
	m.Welcomes++
	return m.Err
}

func (m *MockMailer) SendAlertTriggered(ctx context.Context, alert *domain.PriceAlert, price float64) error {
	m.Alerts++
	return m.Err
}

func TestNewsletterService_DuplicateSubscription(t *testing.T) {
	repo := NewMockSubscriptionRepo()
	mailer := &MockMailer{}
	s := NewNewsletterService(repo, mailer, zap.NewNop())
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}
	if !sub.Active {
		t.Error("subscription should be active")
	}

	_, err = s.Subscribe(ctx, "a@b.com")
	if !errors.Is(err, domain.ErrDuplicateSubscription) {
		t.Errorf("second subscribe: expected ErrDuplicateSubscription, got %v", err)
	}

	stored, err := repo.GetSubscription(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("subscription missing after duplicate attempt: %v", err)
	}
	if !stored.Active {
		t.Error("subscription must remain active exactly once")
	}
	if mailer.Welcomes != 1 {
		t.Errorf("welcome mails sent %d times, want 1", mailer.Welcomes)
	}
}

func TestNewsletterService_ResubscribeAfterUnsubscribe(t *testing.T) {
	repo := NewMockSubscriptionRepo()
	s := NewNewsletterService(repo, &MockMailer{}, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Subscribe(ctx, "a@b.com"); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := s.Unsubscribe(ctx, "a@b.com"); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	sub, err := s.Subscribe(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
	if !sub.Active {
		t.Error("resubscribed subscription should be active")
	}
}

func TestNewsletterService_InvalidEmail(t *testing.T) {
	s := NewNewsletterService(NewMockSubscriptionRepo(), &MockMailer{}, zap.NewNop())

	var verr *domain.ValidationError
	if _, err := s.Subscribe(context.Background(), "not-an-email"); !errors.As(err, &verr) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNewsletterService_MailFailureDoesNotFailSubscribe(t *testing.T) {
	repo := NewMockSubscriptionRepo()
	mailer := &MockMailer{Err: errors.New("sendgrid down")}
	s := NewNewsletterService(repo, mailer, zap.NewNop())

	if _, err := s.Subscribe(context.Background(), "a@b.com"); err != nil {
		t.Errorf("subscribe should succeed despite mail failure, got %v", err)
	}
}

func TestNewsletterService_EmailNormalized(t *testing.T) {
	repo := NewMockSubscriptionRepo()
	s := NewNewsletterService(repo, &MockMailer{}, zap.NewNop())
	ctx := context.Background()

	if _, err := s.Subscribe(ctx, "  A@B.com "); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if _, err := s.Subscribe(ctx, "a@b.com"); !errors.Is(err, domain.ErrDuplicateSubscription) {
		t.Errorf("case/whitespace variants should hit the same subscription, got %v", err)
	}
}
