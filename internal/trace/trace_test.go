package trace

import (
	"path/filepath"
	"testing"

	"fmigo/internal/fmicore"
)

func TestRecorderAccumulatesSamplesAndEvents(t *testing.T) {
	rec := New()
	rec.Record(0.0, fmicore.StateVector{0, 0})
	rec.Record(0.1, fmicore.StateVector{0.1, 0.2})
	rec.RecordEvent(0.1, "state")

	samples := rec.Samples()
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[1].State[1] != 0.2 {
		t.Errorf("sample state mismatch: %+v", samples[1])
	}
}

func TestRecordClonesTheStateBuffer(t *testing.T) {
	rec := New()
	buf := fmicore.StateVector{1, 2}
	rec.Record(0.0, buf)
	buf[0] = 99

	if rec.Samples()[0].State[0] != 1 {
		t.Error("Record should snapshot state, not alias the caller's buffer")
	}
}

func TestStoreSaveListLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	rec := New()
	rec.Record(0.0, fmicore.StateVector{0, 1})
	rec.Record(0.5, fmicore.StateVector{0.5, 1.5})
	rec.RecordEvent(0.5, "time")

	runID, err := store.Save("zigzag", "eu", 1e-4, rec)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Fatalf("List returned %+v, want a single run %q", runs, runID)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Model != "zigzag" || meta.Samples != 2 || len(meta.Events) != 1 {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	states, err := store.LoadStates(runID)
	if err != nil {
		t.Fatalf("LoadStates: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}
	if states[1].State[1] != 1.5 {
		t.Errorf("state round trip mismatch: %+v", states[1])
	}
}

func TestListOnMissingDirReturnsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	runs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
