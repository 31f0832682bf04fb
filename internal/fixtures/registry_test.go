package fixtures_test

import (
	"testing"

	"fmigo/internal/fixtures"
	"fmigo/internal/fmicore"
)

func TestNewKnowsEveryListedFixture(t *testing.T) {
	for _, name := range fixtures.Names() {
		cap, ok := fixtures.New(name)
		if !ok {
			t.Errorf("New(%q) reported unknown, but it is listed in Names()", name)
			continue
		}
		if cap == nil {
			t.Errorf("New(%q) returned a nil capability", name)
		}
		if _, ok := fixtures.Info[name]; !ok {
			t.Errorf("fixture %q has no entry in Info", name)
		}
	}
}

func TestNewRejectsUnknownName(t *testing.T) {
	if _, ok := fixtures.New("nonexistent"); ok {
		t.Error("expected New(\"nonexistent\") to report false")
	}
}

func TestZigzagFlipsSignAtEvent(t *testing.T) {
	z := fixtures.NewZigzag()
	out := make([]float64, 1)
	if err := z.GetDerivatives(out); err != nil {
		t.Fatalf("GetDerivatives: %v", err)
	}
	if out[0] != 1.0 {
		t.Fatalf("expected initial derivative +1, got %v", out[0])
	}

	// place the model just past the event at x = 1, where g = 1 - x < 0
	if err := z.SetContinuousStates(fmicore.StateVector{1.001}); err != nil {
		t.Fatalf("SetContinuousStates: %v", err)
	}
	if _, err := z.NewDiscreteStates(); err != nil {
		t.Fatalf("NewDiscreteStates: %v", err)
	}
	if err := z.GetDerivatives(out); err != nil {
		t.Fatalf("GetDerivatives: %v", err)
	}
	if out[0] != -1.0 {
		t.Fatalf("expected flipped derivative -1 after event, got %v", out[0])
	}
}
