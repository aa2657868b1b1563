package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestProviderErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ProviderError{Message: "send rejected", Cause: errors.New("550 mailbox unavailable")}
	got := err.Error()
	if !strings.Contains(got, "send rejected") || !strings.Contains(got, "550 mailbox unavailable") {
		t.Fatalf("Error() = %q", got)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := fmt.Errorf("while sending: %w", &ProviderError{Message: "send rejected", Cause: cause})
	if !errors.Is(err, cause) {
		t.Fatal("Unwrap should expose the cause")
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transient provider error", err: &ProviderError{Transient: true}, want: true},
		{name: "auth provider error", err: &ProviderError{Auth: true}, want: false},
		{name: "wrapped transient", err: fmt.Errorf("send: %w", &ProviderError{Transient: true}), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Fatalf("IsTransient(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsAuth(t *testing.T) {
	t.Parallel()

	if !IsAuth(&ProviderError{Auth: true}) {
		t.Fatal("IsAuth(auth error) = false")
	}
	if IsAuth(&ProviderError{Transient: true}) {
		t.Fatal("IsAuth(transient error) = true")
	}
	if IsAuth(errors.New("boom")) {
		t.Fatal("IsAuth(plain error) = true")
	}
	if IsAuth(nil) {
		t.Fatal("IsAuth(nil) = true")
	}
}

func TestNewSMTPAndCloseBeforeDial(t *testing.T) {
	t.Parallel()

	engine, err := NewSMTP(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "rfq@example.com",
		Password: "secret",
		Pause:    time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSMTP() error = %v", err)
	}

	// Closing without a session must be a no-op on every exit path.
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() before Dial error = %v", err)
	}
}

func TestPauseAfterSendHonorsContext(t *testing.T) {
	t.Parallel()

	engine, err := NewSMTP(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "rfq@example.com",
		Password: "secret",
		Pause:    time.Hour,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSMTP() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		engine.pauseAfterSend(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pauseAfterSend did not honor context cancellation")
	}
}
