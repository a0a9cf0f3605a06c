package instance

import "testing"

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv(envInstanceID, "publisher-2")
	t.Setenv("DYNO", "web.1")
	if got := GetID("local"); got != "publisher-2" {
		t.Fatalf("expected publisher-2 got %q", got)
	}
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv(envInstanceID, " ")
	t.Setenv("DYNO", "worker.3")
	if got := GetID("local"); got != "worker.3" {
		t.Fatalf("expected worker.3 got %q", got)
	}
}
