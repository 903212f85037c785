package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) SendTaskAssigned(ctx context.Context, in SendTaskAssignedInput) error {
	f.calls++
	return f.err
}

func (f *fakeNotifier) SendSubmissionReceived(ctx context.Context, in SendSubmissionReceivedInput) error {
	f.calls++
	return f.err
}

func (f *fakeNotifier) SendLoginLink(ctx context.Context, in SendLoginLinkInput) error {
	f.calls++
	return f.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
	})

	ctx := context.Background()
	in := SendLoginLinkInput{Email: "writer@example.com", VerifyURL: "https://example.com/v"}

	for i := 0; i < 3; i++ {
		if err := n.SendLoginLink(ctx, in); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	// circuit should now be open, inner must not be called again
	err := n.SendLoginLink(ctx, in)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 inner calls, got %d", inner.calls)
	}
}

func TestProtectedNotifier_RecoversAfterCooldown(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	ctx := context.Background()
	in := SendSubmissionReceivedInput{Email: "writer@example.com"}

	if err := n.SendSubmissionReceived(ctx, in); err == nil {
		t.Fatalf("expected failure")
	}
	if err := n.SendSubmissionReceived(ctx, in); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// half-open trial call succeeds, circuit closes
	inner.err = nil
	if err := n.SendSubmissionReceived(ctx, in); err != nil {
		t.Fatalf("expected success after cooldown, got %v", err)
	}
	if err := n.SendSubmissionReceived(ctx, in); err != nil {
		t.Fatalf("expected circuit closed, got %v", err)
	}
}

func TestProtectedNotifier_SuccessResetsCounter(t *testing.T) {
	inner := &fakeNotifier{}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	})

	ctx := context.Background()
	in := SendTaskAssignedInput{Email: "writer@example.com", TaskTitle: "Essay"}

	inner.err = errors.New("flaky")
	if err := n.SendTaskAssigned(ctx, in); err == nil {
		t.Fatalf("expected failure")
	}

	inner.err = nil
	if err := n.SendTaskAssigned(ctx, in); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	inner.err = errors.New("flaky")
	if err := n.SendTaskAssigned(ctx, in); errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("circuit should not be open after a single failure")
	}
}
