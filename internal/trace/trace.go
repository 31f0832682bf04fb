// Package trace records a completed Integrate run's time/state history
// and event markers to disk for CLI reporting, adapted from the
// teacher's internal/storage run store (metadata.json + a states.csv
// sidecar) onto the driver's time/state/event shape instead of a
// physics simulator's states/controls/metrics shape.
package trace

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fmigo/internal/fmicore"
)

// Sample is one recorded (time, state) point.
type Sample struct {
	T     float64
	State fmicore.StateVector
}

// EventMark records the time and classification of an event the driver
// reported while a run was being traced.
type EventMark struct {
	T    float64 `json:"t"`
	Kind string  `json:"kind"`
}

// Recorder accumulates samples and event markers during a run; the
// caller feeds it from the driver's Integrate loop and hands the result
// to a Store to persist.
type Recorder struct {
	samples []Sample
	events  []EventMark
}

// New returns an empty Recorder.
func New() *Recorder { return &Recorder{} }

// Record appends a (t, state) sample, cloning state so later mutation of
// the caller's buffer doesn't corrupt the trace.
func (r *Recorder) Record(t float64, state fmicore.StateVector) {
	r.samples = append(r.samples, Sample{T: t, State: state.Clone()})
}

// RecordEvent appends an event marker.
func (r *Recorder) RecordEvent(t float64, kind string) {
	r.events = append(r.events, EventMark{T: t, Kind: kind})
}

// Samples returns the recorded samples in insertion order.
func (r *Recorder) Samples() []Sample { return r.samples }

// RunMetadata is the JSON sidecar written alongside a run's state CSV.
type RunMetadata struct {
	ID                   string      `json:"id"`
	Model                string      `json:"model"`
	Timestamp            time.Time   `json:"timestamp"`
	Stepper              string      `json:"stepper"`
	EventSearchPrecision float64     `json:"eventSearchPrecision"`
	Samples              int         `json:"samples"`
	Events               []EventMark `json:"events"`
}

// Store persists Recorder output under baseDir, one subdirectory per run.
type Store struct {
	baseDir string
}

// NewStore returns a Store rooted at baseDir.
func NewStore(baseDir string) *Store { return &Store{baseDir: baseDir} }

// Init creates baseDir if it does not already exist.
func (s *Store) Init() error { return os.MkdirAll(s.baseDir, 0755) }

// Save writes rec's metadata and state history under a fresh run
// directory, returning its ID.
func (s *Store) Save(model, stepper string, eps float64, rec *Recorder) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:                   runID,
		Model:                model,
		Timestamp:            time.Now(),
		Stepper:              stepper,
		EventSearchPrecision: eps,
		Samples:              len(rec.samples),
		Events:               rec.events,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(rec.samples) == 0 {
		return runID, nil
	}

	header := []string{"time"}
	for i := range rec.samples[0].State {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, s := range rec.samples {
		row := []string{strconv.FormatFloat(s.T, 'f', 9, 64)}
		for _, v := range s.State {
			row = append(row, strconv.FormatFloat(v, 'f', 9, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// List returns metadata for every run stored under baseDir.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load reads back one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates reads back one run's state-history CSV.
func (s *Store) LoadStates(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		state := make(fmicore.StateVector, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			state = append(state, v)
		}
		samples = append(samples, Sample{T: t, State: state})
	}
	return samples, nil
}
