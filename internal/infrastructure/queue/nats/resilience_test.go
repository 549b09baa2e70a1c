package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"context canceled", context.Canceled, false, false},
		{"deadline exceeded", context.DeadlineExceeded, false, false},
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"disconnected", nats.ErrDisconnected, true, true},
		{"unknown error", errors.New("boom"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifyNATSError(tt.err)
			if class.Retryable != tt.retryable {
				t.Fatalf("Retryable = %v, want %v", class.Retryable, tt.retryable)
			}
			if class.RecordFailure != tt.recordFailure {
				t.Fatalf("RecordFailure = %v, want %v", class.RecordFailure, tt.recordFailure)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("nil must stay nil, got %v", err)
	}

	wrapped := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("retryable failure must be marked temporary, got %v", wrapped)
	}
	if !errors.Is(wrapped, nats.ErrTimeout) {
		t.Fatalf("underlying error must stay reachable, got %v", wrapped)
	}

	permanent := errors.New("bad subject")
	if err := wrapTemporaryIfNeeded(permanent); !errors.Is(err, permanent) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must pass through unchanged, got %v", err)
	}

	already := domain.WrapError(domain.ErrTemporary, "nats publish", nats.ErrNoServers)
	if err := wrapTemporaryIfNeeded(already); err != already {
		t.Fatalf("already-wrapped error must not be double wrapped")
	}
}
