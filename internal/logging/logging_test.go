package logging

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID on fresh context, got %q", got)
	}

	ctx = WithRequestID(ctx, "abc123")
	if got := RequestID(ctx); got != "abc123" {
		t.Errorf("expected abc123, got %q", got)
	}
}

func TestNew_LevelParsing(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if logger := New(level, "text"); logger == nil {
			t.Errorf("New(%q) returned nil", level)
		}
	}
}

func TestL_FallsBackToDefault(t *testing.T) {
	// Context without a logger should still return something usable.
	if logger := L(context.Background()); logger == nil {
		t.Fatal("L returned nil logger")
	}
}

func TestFromContext(t *testing.T) {
	base := New("info", "json")
	ctx := WithLogger(context.Background(), base)

	if got := FromContext(ctx); got != base {
		t.Error("FromContext did not return the stored logger")
	}
}
