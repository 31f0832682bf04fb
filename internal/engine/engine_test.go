package engine

import (
	"math"
	"testing"

	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/steppers"
)

// linearDecayModel is a one-state fixture with dx/dt = -1 and a single
// event indicator equal to x, so the zero-crossing time is known exactly
// (x0 seconds after the start), letting the bisection test check the
// located event time against it instead of just "some event was found".
type linearDecayModel struct {
	t float64
	x fmicore.StateVector
}

func newLinearDecayModel(x0 float64) *linearDecayModel {
	return &linearDecayModel{x: fmicore.StateVector{x0}}
}

func (m *linearDecayModel) SetTime(t float64) error { m.t = t; return nil }
func (m *linearDecayModel) GetTime() (float64, error) { return m.t, nil }
func (m *linearDecayModel) SetContinuousStates(x fmicore.StateVector) error {
	copy(m.x, x)
	return nil
}
func (m *linearDecayModel) GetContinuousStates(out fmicore.StateVector) error {
	copy(out, m.x)
	return nil
}
func (m *linearDecayModel) GetDerivatives(out fmicore.StateVector) error {
	out[0] = -1
	return nil
}
func (m *linearDecayModel) GetEventIndicators(out fmicore.EventIndicators) error {
	out[0] = m.x[0]
	return nil
}
func (m *linearDecayModel) CompletedIntegratorStep(bool) (fmi.StepInfo, error) {
	return fmi.StepInfo{}, nil
}
func (m *linearDecayModel) NEventIndicators() int { return 1 }

func TestIntegrateLocatesStateEventWithinPrecision(t *testing.T) {
	const x0 = 1.0
	const wantEventTime = x0 // dx/dt = -1, so x crosses zero at t = x0
	const eps = 1e-6

	model := newLinearDecayModel(x0)
	stepper := steppers.NewEuler(1)

	tEnd, info, err := Integrate(model, stepper, model.x, 0, 5, 0.1, eps)
	if err != nil {
		t.Fatalf("Integrate returned error: %v", err)
	}
	if !info.StateEvent {
		t.Fatalf("expected a state event, got %+v", info)
	}
	if info.TUpper-info.TLower <= 0 {
		t.Fatalf("expected TLower < TUpper, got [%v, %v]", info.TLower, info.TUpper)
	}
	if math.Abs(info.TLower-wantEventTime) > 0.15 {
		t.Fatalf("TLower = %v, want within 0.15 of %v", info.TLower, wantEventTime)
	}
	if info.TUpper < info.TLower {
		t.Fatalf("TUpper (%v) must not precede TLower (%v)", info.TUpper, info.TLower)
	}
	if tEnd != info.TLower {
		t.Fatalf("Integrate returned t=%v, want it to match TLower=%v", tEnd, info.TLower)
	}

	// The state left in the model must reflect tLower, strictly before
	// the sign change, not some point after it.
	var x fmicore.StateVector = make(fmicore.StateVector, 1)
	if err := model.GetContinuousStates(x); err != nil {
		t.Fatalf("GetContinuousStates: %v", err)
	}
	if x[0] < 0 {
		t.Fatalf("state at tLower must precede the sign change, got x=%v", x[0])
	}
}

func TestIntegrateNoEventReachesEndOfSpan(t *testing.T) {
	model := newLinearDecayModel(100) // never crosses zero within the span
	stepper := steppers.NewEuler(1)

	tEnd, info, err := Integrate(model, stepper, model.x, 0, 5, 0.5, 1e-6)
	if err != nil {
		t.Fatalf("Integrate returned error: %v", err)
	}
	if info.StateEvent {
		t.Fatalf("did not expect a state event, got %+v", info)
	}
	if math.Abs(tEnd-5) > 1e-9 {
		t.Fatalf("tEnd = %v, want 5", tEnd)
	}
}
