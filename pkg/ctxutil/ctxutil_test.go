package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestUserIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got, ok := UserIDFromCtx(WithUserID(context.Background(), id))
	if !ok || got != id {
		t.Fatalf("got (%s, %v), want (%s, true)", got, ok, id)
	}
}

func TestUserIDFromCtx_Missing(t *testing.T) {
	t.Parallel()

	if _, ok := UserIDFromCtx(context.Background()); ok {
		t.Fatal("expected ok=false for empty context")
	}
	if _, ok := UserIDFromCtx(WithUserID(context.Background(), uuid.Nil)); ok {
		t.Fatal("expected ok=false for nil UUID")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromCtx(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	if got := RequestIDFromCtx(WithRequestID(context.Background(), "req-1")); got != "req-1" {
		t.Fatalf("got %q", got)
	}
}
