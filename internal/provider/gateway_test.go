package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/labcompare/push-dispatcher/internal/domain"
)

func testSubscription() domain.Subscription {
	return domain.Subscription{
		Endpoint: "https://push.example.com/send/abc123",
		Keys:     domain.SubscriptionKeys{P256dh: "pub-key", Auth: "auth-secret"},
	}
}

func TestGatewayProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody gatewayRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Message-ID", "gw-msg-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	p, err := NewGatewayProvider(server.URL, "secret-key")
	if err != nil {
		t.Fatalf("NewGatewayProvider() error = %v", err)
	}

	resp, err := p.Send(context.Background(), testSubscription(), domain.Payload{
		Title: "Report ready",
		Body:  "Your lab report is ready.",
	})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if resp.MessageID != "gw-msg-1" {
		t.Fatalf("MessageID = %q, want %q", resp.MessageID, "gw-msg-1")
	}
	if gotAuth != "key=secret-key" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "key=secret-key")
	}

	if gotBody.Subscription.Endpoint != "https://push.example.com/send/abc123" {
		t.Fatalf("request.subscription.endpoint = %q", gotBody.Subscription.Endpoint)
	}
	if gotBody.Message.Title != "Report ready" {
		t.Fatalf("request.message.title = %q, want %q", gotBody.Message.Title, "Report ready")
	}
	if gotBody.Message.Icon != domain.DefaultIcon {
		t.Fatalf("request.message.icon = %q, want default %q", gotBody.Message.Icon, domain.DefaultIcon)
	}
}

func TestGatewayProviderSendStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
		wantGone      bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest},
		{name: "not found marks subscription gone", statusCode: http.StatusNotFound, wantGone: true},
		{name: "gone marks subscription gone", statusCode: http.StatusGone, wantGone: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("gateway failed"))
			}))
			defer server.Close()

			p, err := NewGatewayProvider(server.URL, "")
			if err != nil {
				t.Fatalf("NewGatewayProvider() error = %v", err)
			}

			_, err = p.Send(context.Background(), testSubscription(), domain.Payload{Title: "t", Body: "b"})
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}
			if got := IsGone(err); got != tc.wantGone {
				t.Fatalf("IsGone() = %v, want %v", got, tc.wantGone)
			}

			var providerErr *ProviderError
			if !errors.As(err, &providerErr) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if providerErr.StatusCode != tc.statusCode {
				t.Fatalf("ProviderError.StatusCode = %d, want %d", providerErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestGatewayProviderSendTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(30 * time.Millisecond)

	p, err := NewGatewayProviderWithClient(server.URL, "", client)
	if err != nil {
		t.Fatalf("NewGatewayProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), testSubscription(), domain.Payload{Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
}

func TestGatewayProviderRejectsInvalidSubscription(t *testing.T) {
	t.Parallel()

	p, err := NewGatewayProvider("https://gateway.example.com/push", "")
	if err != nil {
		t.Fatalf("NewGatewayProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), domain.Subscription{}, domain.Payload{Title: "t", Body: "b"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Send() error = %v, want ErrValidation", err)
	}
}
