// ABOUTME: Tests for client identity propagation through context
// ABOUTME: Covers set, get and anonymous lookups

package auth

import (
	"context"
	"testing"
)

func TestClientContext(t *testing.T) {
	ctx := context.Background()
	if got := ClientFromContext(ctx); got != "" {
		t.Errorf("ClientFromContext(empty) = %q, want empty", got)
	}

	ctx = WithClient(ctx, "collector-1")
	if got := ClientFromContext(ctx); got != "collector-1" {
		t.Errorf("ClientFromContext() = %q, want %q", got, "collector-1")
	}
}
