package service

import (
	"context"
	"errors"
	"testing"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"go.uber.org/zap"
)

func validSubscription() domain.Subscription {
	return domain.Subscription{
		Endpoint: "https://push.example.com/ep-1",
		Keys: domain.SubscriptionKeys{
			P256dh: "BPk256dh",
			Auth:   "authsecret",
		},
	}
}

func TestSubscribeRegistersEndpoint(t *testing.T) {
	t.Parallel()

	var gotUser string
	var gotSub domain.Subscription
	users := &fakeUserRepo{
		addSubscriptionFn: func(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
			gotUser = userID
			gotSub = sub
			return true, nil
		},
	}

	s, err := NewSubscriptionService(users, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSubscriptionService() error = %v", err)
	}

	added, err := s.Subscribe(context.Background(), "u1", validSubscription())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !added {
		t.Fatal("first registration should report added=true")
	}
	if gotUser != "u1" {
		t.Fatalf("user = %q, want u1", gotUser)
	}
	if gotSub.Endpoint != "https://push.example.com/ep-1" {
		t.Fatalf("endpoint = %q, want the registered endpoint", gotSub.Endpoint)
	}
}

func TestSubscribeDuplicateEndpointIsNotAnError(t *testing.T) {
	t.Parallel()

	users := &fakeUserRepo{
		addSubscriptionFn: func(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
			return false, nil
		},
	}

	s, err := NewSubscriptionService(users, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSubscriptionService() error = %v", err)
	}

	added, err := s.Subscribe(context.Background(), "u1", validSubscription())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if added {
		t.Fatal("duplicate registration should report added=false")
	}
}

func TestSubscribeValidation(t *testing.T) {
	t.Parallel()

	repoCalled := false
	users := &fakeUserRepo{
		addSubscriptionFn: func(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
			repoCalled = true
			return true, nil
		},
	}

	s, err := NewSubscriptionService(users, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSubscriptionService() error = %v", err)
	}

	cases := []struct {
		name   string
		userID string
		sub    domain.Subscription
	}{
		{name: "missing user id", userID: "", sub: validSubscription()},
		{name: "missing endpoint", userID: "u1", sub: domain.Subscription{Keys: domain.SubscriptionKeys{P256dh: "k", Auth: "a"}}},
		{name: "missing keys", userID: "u1", sub: domain.Subscription{Endpoint: "https://push.example.com/ep"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Subscribe(context.Background(), tc.userID, tc.sub)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Subscribe() error = %v, want ErrValidation", err)
			}
		})
	}
	if repoCalled {
		t.Fatal("invalid input must not reach the repository")
	}
}

func TestSubscribeStoreFailure(t *testing.T) {
	t.Parallel()

	users := &fakeUserRepo{
		addSubscriptionFn: func(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
			return false, errors.New("connection reset")
		},
	}

	s, err := NewSubscriptionService(users, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSubscriptionService() error = %v", err)
	}

	if _, err := s.Subscribe(context.Background(), "u1", validSubscription()); err == nil {
		t.Fatal("expected error when the store fails")
	}
}
