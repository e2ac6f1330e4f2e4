package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestBreaker_TripsAfterFailures(t *testing.T) {
	stub := &Stub{Err: errors.New("upstream down")}
	b := NewBreaker(stub, BreakerSettings{
		MinRequests:  3,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
		HalfOpenMax:  1,
	})

	for i := 0; i < 3; i++ {
		if _, err := b.Generate(context.Background(), []Part{TextPart("x")}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	if b.State() != gobreaker.StateOpen {
		t.Fatalf("Expected open breaker, got %s", b.State())
	}

	_, err := b.Generate(context.Background(), []Part{TextPart("x")})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if n := len(stub.Calls()); n != 3 {
		t.Errorf("Expected open breaker to skip the provider, got %d calls", n)
	}
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	stub := &Stub{Text: "Approved"}
	b := NewBreaker(stub, DefaultBreakerSettings())

	text, err := b.Generate(context.Background(), []Part{TextPart("x")})
	if err != nil || text != "Approved" {
		t.Errorf("Expected Approved, got %q (%v)", text, err)
	}
	if b.Name() != "stub" {
		t.Errorf("Expected wrapped name, got %s", b.Name())
	}
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	stub := &Stub{Text: "unused"}
	b := NewBreaker(stub, BreakerSettings{MinRequests: 1, FailureRatio: 0.1, OpenTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		if _, err := b.Generate(ctx, nil); !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("Expected closed breaker, got %s", b.State())
	}
}
