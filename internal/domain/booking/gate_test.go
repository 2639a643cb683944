package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayurcare/ayurcare/internal/domain/subscription"
)

// memSubscriptions is an in-memory subscription.Repository.
type memSubscriptions struct {
	mu   sync.Mutex
	subs map[int64]subscription.Subscription
}

func (m *memSubscriptions) GetByUserID(_ context.Context, userID int64) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[userID]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return &s, nil
}

func (m *memSubscriptions) Save(_ context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = int64(len(m.subs) + 1)
	}
	m.subs[s.UserID] = *s
	return nil
}

func (m *memSubscriptions) ExpireTrials(context.Context, time.Time) (int64, error) { return 0, nil }

func newTestGate() (*ChatGate, *subscription.Service) {
	svc := subscription.NewService(&memSubscriptions{subs: map[int64]subscription.Subscription{}}, nil, 0)
	return NewChatGate(svc, nil), svc
}

func TestChatGate_ScenarioB(t *testing.T) {
	gate, subs := newTestGate()
	ctx := context.Background()

	d, err := gate.Check(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || !d.ConsumesFreeConsultation {
		t.Fatalf("expected free consultation decision, got %+v", d)
	}

	// viewing the gate does not use the consultation
	if r, _ := subs.CheckStatus(ctx, 5); !r.FreeConsultationAvailable {
		t.Fatal("Check must not consume the free consultation")
	}

	d, err = gate.Start(ctx, 5)
	if err != nil || !d.Allowed {
		t.Fatalf("expected first chat to start, got %+v (%v)", d, err)
	}
	r, _ := subs.CheckStatus(ctx, 5)
	if r.Subscription == nil || !r.Subscription.FreeConsultationUsed {
		t.Fatal("expected free_consultation_used to be true")
	}

	_, err = gate.Start(ctx, 5)
	var le *LockedError
	if !errors.As(err, &le) || !errors.Is(err, ErrFeatureLocked) {
		t.Fatalf("expected FeatureLocked on second attempt, got %v", err)
	}
	if _, err := gate.Check(ctx, 5); !errors.Is(err, ErrFeatureLocked) {
		t.Fatalf("expected Check to report FeatureLocked, got %v", err)
	}
}

func TestChatGate_Premium(t *testing.T) {
	gate, subs := newTestGate()
	ctx := context.Background()
	if _, err := subs.UpgradeToPremium(ctx, 7); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	for i := 0; i < 3; i++ {
		d, err := gate.Start(ctx, 7)
		if err != nil || !d.Allowed || d.Reason != ReasonPremium || d.ConsumesFreeConsultation {
			t.Fatalf("premium chat %d: %+v (%v)", i, d, err)
		}
	}
	r, _ := subs.CheckStatus(ctx, 7)
	if r.Subscription.FreeConsultationUsed {
		t.Error("premium chats must not touch the free consultation flag")
	}
}

func TestChatGate_TrialUsesFreeConsultation(t *testing.T) {
	gate, subs := newTestGate()
	ctx := context.Background()
	if _, err := subs.ActivateTrial(ctx, 8); err != nil {
		t.Fatalf("trial: %v", err)
	}
	if d, err := gate.Start(ctx, 8); err != nil || d.Reason != ReasonFreeConsultation {
		t.Fatalf("expected free consultation on trial, got %+v (%v)", d, err)
	}
	if _, err := gate.Start(ctx, 8); !errors.Is(err, ErrFeatureLocked) {
		t.Fatalf("expected FeatureLocked, got %v", err)
	}
}

func TestChatGate_CancelledPremiumLocked(t *testing.T) {
	gate, subs := newTestGate()
	ctx := context.Background()
	_, _ = subs.UpgradeToPremium(ctx, 9)
	_, _ = subs.CancelPremium(ctx, 9)

	_, err := gate.Check(ctx, 9)
	var le *LockedError
	if !errors.As(err, &le) || le.State != subscription.StatePremiumCancelled {
		t.Fatalf("expected FeatureLocked from premium_cancelled, got %v", err)
	}
}

func TestChatGate_ConcurrentStartOnce(t *testing.T) {
	gate, _ := newTestGate()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		allowed     int
		locked      int
		unexpecteds []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Start(context.Background(), 12)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				allowed++
			case errors.Is(err, ErrFeatureLocked):
				locked++
			default:
				unexpecteds = append(unexpecteds, err)
			}
		}()
	}
	wg.Wait()
	if allowed != 1 || locked != 9 || len(unexpecteds) != 0 {
		t.Errorf("expected 1 allowed and 9 locked, got %d, %d, %v", allowed, locked, unexpecteds)
	}
}

type failingSubscriptions struct{ err error }

func (f failingSubscriptions) CheckStatus(context.Context, int64) (*subscription.Report, error) {
	return nil, f.err
}

func (f failingSubscriptions) MarkConsultationUsed(context.Context, int64) (*subscription.Subscription, error) {
	return nil, f.err
}

func TestChatGate_StorageError(t *testing.T) {
	boom := errors.New("db unavailable")
	_, err := NewChatGate(failingSubscriptions{err: boom}, nil).Start(context.Background(), 1)
	if !errors.Is(err, boom) || errors.Is(err, ErrFeatureLocked) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
