package events

import (
	"context"
	"testing"
)

func TestSessionIDFromContext(t *testing.T) {
	if got := SessionIDFromContext(context.Background()); got != "" {
		t.Errorf("background context carries session %q", got)
	}

	ctx := ContextWithSessionID(context.Background(), "sess_teams_1")
	if got := SessionIDFromContext(ctx); got != "sess_teams_1" {
		t.Errorf("got %q, want sess_teams_1", got)
	}

	inner := ContextWithSessionID(ctx, "sess_addin_2")
	if got := SessionIDFromContext(inner); got != "sess_addin_2" {
		t.Errorf("inner context: got %q, want sess_addin_2", got)
	}
}
