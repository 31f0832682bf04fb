package steppers_test

import (
	"math"
	"testing"

	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/steppers"
)

// decayModel implements steppers.Model for dx/dt = -x, a smooth
// scalar ODE with a known closed-form solution x(t) = x0*exp(-t), used
// to check every built-in (non-plugin) stepper family converges to the right answer without
// needing an event-indicator or Jacobian fixture.
type decayModel struct {
	t float64
	x fmicore.StateVector
}

func newDecayModel(x0 float64) *decayModel { return &decayModel{x: fmicore.StateVector{x0}} }

func (m *decayModel) SetTime(t float64) error   { m.t = t; return nil }
func (m *decayModel) GetTime() (float64, error) { return m.t, nil }
func (m *decayModel) SetContinuousStates(x fmicore.StateVector) error {
	copy(m.x, x)
	return nil
}
func (m *decayModel) GetContinuousStates(out fmicore.StateVector) error { copy(out, m.x); return nil }
func (m *decayModel) GetDerivatives(out fmicore.StateVector) error {
	out[0] = -m.x[0]
	return nil
}
func (m *decayModel) GetEventIndicators(fmicore.EventIndicators) error { return nil }
func (m *decayModel) CompletedIntegratorStep(bool) (fmi.StepInfo, error) {
	return fmi.StepInfo{}, nil
}

func decayJacobian(t float64, x fmicore.StateVector, out []float64) error {
	out[0] = -1
	return nil
}

func TestStepperFamiliesConvergeOnExponentialDecay(t *testing.T) {
	tags := []steppers.Tag{
		steppers.TagEuler, steppers.TagRK4, steppers.TagCashKarp,
		steppers.TagDormandPrince, steppers.TagFehlberg78,
		steppers.TagBulirschStoer, steppers.TagAdamsMoulton, steppers.TagRosenbrock,
	}

	for _, tag := range tags {
		tag := tag
		t.Run(string(tag), func(t *testing.T) {
			st, err := steppers.New(tag, 0)
			if err != nil {
				t.Fatalf("New(%s): %v", tag, err)
			}
			if jacSetter, ok := st.(steppers.NeedsJacobian); ok {
				jacSetter.SetJacobian(decayJacobian)
			}

			model := newDecayModel(1.0)
			state := fmicore.StateVector{1.0}
			newT, info, err := st.InvokeMethod(model, state, 0, 1.0, 0.01)
			if err != nil {
				t.Fatalf("InvokeMethod: %v", err)
			}
			if info.StateEvent || info.StepEvent {
				t.Fatalf("unexpected event reported: %+v", info)
			}
			if math.Abs(newT-1.0) > 1e-9 {
				t.Errorf("newT = %v, want 1.0", newT)
			}

			want := math.Exp(-1.0)
			if math.Abs(state[0]-want) > 5e-2 {
				t.Errorf("%s: x(1) = %v, want ~%v", tag, state[0], want)
			}
		})
	}
}

func TestNewRejectsUnknownTag(t *testing.T) {
	if _, err := steppers.New(steppers.Tag("nonexistent"), 0); err == nil {
		t.Error("expected an error for an unknown stepper tag")
	}
}

func TestTagsMatchesNewForEveryEntry(t *testing.T) {
	for _, tag := range steppers.Tags() {
		if _, err := steppers.New(tag, 0); err != nil {
			t.Errorf("New(%s) from Tags() failed: %v", tag, err)
		}
	}
}

func TestUnregisteredStiffPluginsFailFast(t *testing.T) {
	for _, tag := range []steppers.Tag{steppers.TagBDF, steppers.TagAdamsMoultonStf} {
		st, err := steppers.New(tag, 0)
		if err != nil {
			t.Fatalf("New(%s): %v", tag, err)
		}
		model := newDecayModel(1.0)
		state := fmicore.StateVector{1.0}
		if _, _, err := st.InvokeMethod(model, state, 0, 1.0, 0.01); err == nil {
			t.Errorf("%s: expected an error from an unregistered plugin stepper", tag)
		}
	}
}
