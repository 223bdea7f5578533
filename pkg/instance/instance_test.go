package instance

import "testing"

func TestGetID(t *testing.T) {
	t.Setenv("BRANCHPOS_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local fallback, got %q", got)
	}

	t.Setenv("DYNO", "web.1")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected dyno id, got %q", got)
	}

	t.Setenv("BRANCHPOS_INSTANCE_ID", "pos-a")
	if got := GetID(); got != "pos-a" {
		t.Fatalf("expected explicit id to win, got %q", got)
	}
}
