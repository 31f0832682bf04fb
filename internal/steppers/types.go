// Package steppers implements the Stepper (ST) family from spec §4.2: a
// uniform Integrate-Until contract realized as ten concrete steppers
// selected at construction — a tagged variant rather than a class
// hierarchy, per the "dynamic dispatch over steppers" design note.
package steppers

import (
	"math"

	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
)

// Tag identifies a stepper family, matching the catalogue in spec §4.2.
type Tag string

const (
	TagEuler           Tag = "eu"
	TagRK4             Tag = "rk"
	TagCashKarp        Tag = "ck"
	TagDormandPrince   Tag = "dp"
	TagFehlberg78      Tag = "fe"
	TagBulirschStoer   Tag = "bs"
	TagAdamsMoulton    Tag = "abm"
	TagRosenbrock      Tag = "ro"
	TagBDF             Tag = "bdf"
	TagAdamsMoultonStf Tag = "abm2"
)

// Props describes a stepper's static properties. Abstol/Reltol are nil
// when unset (the caller should apply the stepper's defaults), replacing
// the source's NaN-as-unset convention.
type Props struct {
	Tag     Tag
	Name    string
	Order   int
	Adaptive bool
	Abstol  *float64
	Reltol  *float64
}

// Tolerance returns the effective (abstol, reltol) pair, substituting
// def when a field is unset.
func (p Props) Tolerance(defAbs, defRel float64) (float64, float64) {
	abs, rel := defAbs, defRel
	if p.Abstol != nil {
		abs = *p.Abstol
	}
	if p.Reltol != nil {
		rel = *p.Reltol
	}
	return abs, rel
}

// Model is the subset of the ModelHandle contract a Stepper needs during
// one InvokeMethod/DoStepConst call. A Stepper never keeps this
// reference beyond the call.
type Model interface {
	SetTime(t float64) error
	GetTime() (float64, error)
	SetContinuousStates(x fmicore.StateVector) error
	GetContinuousStates(out fmicore.StateVector) error
	GetDerivatives(out fmicore.StateVector) error
	GetEventIndicators(out fmicore.EventIndicators) error
	CompletedIntegratorStep(noSetStatePriorToCurrentPoint bool) (fmi.StepInfo, error)
}

// Stepper is the uniform contract every family implements.
type Stepper interface {
	// InvokeMethod advances (t, state) up to t+span or until a state
	// event or step event is detected, without crossing it. state is
	// updated in place. If span ≤ 0 it returns immediately with a zero
	// EventInfo.
	InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (newT float64, info fmicore.EventInfo, err error)

	// DoStepConst advances (t, state) by exactly dt, without adaptive
	// subdivision; used by the Integration Engine's bisection.
	DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error

	// Reset discards any internal multistep/dense-output history so the
	// next InvokeMethod starts cold. Bisection calls this after a
	// DoStepConst it rewinds.
	Reset()

	Props() Props
}

// NeedsJacobian is implemented by steppers that require the model's
// Jacobian (currently only Rosenbrock).
type NeedsJacobian interface {
	SetJacobian(jac func(t float64, x fmicore.StateVector, out []float64) error)
}

// DenseOutput is implemented by steppers that can interpolate inside the
// last accepted step instead of taking an extra one to land exactly on
// t+span.
type DenseOutput interface {
	// Interpolate evaluates the dense-output polynomial for the last
	// accepted step at absolute time tOut, which must lie within
	// [tStepStart, tStepStart+hLast].
	Interpolate(tOut float64, out fmicore.StateVector) bool
}

// StiffPlugin is the optional external stiff-solver contract for BDF and
// AdamsMoultonStf (abm2); a plugin advertises its own default tolerances
// (1e-10/1e-10, tighter than the built-in adaptive steppers) and caps
// internal solver steps at 1e5 per Integrate call per spec §5.
type StiffPlugin interface {
	Stepper
	MaxInternalSteps() int
}

const defaultAdaptiveAbstol = 1e-6
const defaultAdaptiveReltol = 1e-6
const defaultStiffAbstol = 1e-10
const defaultStiffReltol = 1e-10

// fixedTolerance is +Inf, the tolerance of the non-adaptive steppers,
// which ignore tolerance inputs entirely. Their Props leave Abstol and
// Reltol nil; nothing in the package reports this value.
var fixedTolerance = math.Inf(1)

// commit writes (t, state) into the model and evaluates fresh indicators,
// the shared per-substep bookkeeping every stepper performs after an
// accepted step.
func commit(model Model, state fmicore.StateVector, t float64, indicators fmicore.EventIndicators) error {
	if err := model.SetTime(t); err != nil {
		return err
	}
	if err := model.SetContinuousStates(state); err != nil {
		return err
	}
	return model.GetEventIndicators(indicators)
}
