package worker

import (
	"testing"

	"github.com/google/uuid"
)

func TestOverlayAutosavedAddsLastSecondAnswer(t *testing.T) {
	persistedQ := uuid.New()
	lateQ := uuid.New()

	selected := map[uuid.UUID]string{persistedQ: "A"}
	autosaved := map[string]string{
		persistedQ.String(): "A",
		lateQ.String():      "C",
	}

	stragglers := overlayAutosaved(autosaved, selected)

	if selected[lateQ] != "C" {
		t.Fatalf("expected late answer C to be folded in, got %q", selected[lateQ])
	}
	if len(stragglers) != 1 {
		t.Fatalf("expected 1 straggler row, got %d", len(stragglers))
	}
	if stragglers[0].questionID != lateQ || stragglers[0].answer != "C" {
		t.Fatalf("unexpected straggler %v", stragglers[0])
	}
}

func TestOverlayAutosavedSkipsAlreadyPersistedRows(t *testing.T) {
	qID := uuid.New()

	selected := map[uuid.UUID]string{qID: "B"}
	autosaved := map[string]string{qID.String(): "B"}

	if stragglers := overlayAutosaved(autosaved, selected); len(stragglers) != 0 {
		t.Fatalf("expected no stragglers for a matching row, got %d", len(stragglers))
	}
}

func TestOverlayAutosavedPrefersHashOverStalePersistedRow(t *testing.T) {
	qID := uuid.New()

	selected := map[uuid.UUID]string{qID: "A"}
	autosaved := map[string]string{qID.String(): "D"}

	stragglers := overlayAutosaved(autosaved, selected)

	if selected[qID] != "D" {
		t.Fatalf("expected hash value D to win, got %q", selected[qID])
	}
	if len(stragglers) != 1 {
		t.Fatalf("expected the changed row to be re-persisted, got %d stragglers", len(stragglers))
	}
}

func TestOverlayAutosavedIgnoresMalformedEntries(t *testing.T) {
	selected := map[uuid.UUID]string{}
	autosaved := map[string]string{
		"not-a-uuid":        "A",
		uuid.New().String(): "",
	}

	if stragglers := overlayAutosaved(autosaved, selected); len(stragglers) != 0 {
		t.Fatalf("expected malformed entries to be skipped, got %d stragglers", len(stragglers))
	}
	if len(selected) != 0 {
		t.Fatalf("expected no selections, got %d", len(selected))
	}
}
