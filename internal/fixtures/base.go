// Package fixtures supplies small concrete fmi.Capability models used to
// exercise the driver against the scenarios of spec §8: a linear
// zigzag oscillator with a state event, a stiff scalar, the Van der Pol
// oscillator, and the Robertson chemical-kinetics system.
package fixtures

import (
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// base implements the parts of fmi.Capability every fixture shares
// verbatim: instance lifecycle no-ops, time/state storage, and
// name-addressable Real parameters through a small value-reference
// table each fixture registers at construction.
type base struct {
	nStates     int
	nIndicators int
	providesJac bool

	t float64
	x fmicore.StateVector

	reals map[fmi.ValueRef]*float64
}

func newBase(nStates, nIndicators int, providesJac bool) base {
	return base{
		nStates:     nStates,
		nIndicators: nIndicators,
		providesJac: providesJac,
		x:           make(fmicore.StateVector, nStates),
		reals:       make(map[fmi.ValueRef]*float64),
	}
}

func (b *base) Instantiate(name, guid, resourceLocation string, cb fmi.Callbacks, visible, loggingOn bool) error {
	return nil
}
func (b *base) SetupExperiment(toleranceDefined bool, tolerance, startTime float64, stopTimeDefined bool, stopTime float64) error {
	return nil
}
func (b *base) EnterInitializationMode() error { return nil }
func (b *base) ExitInitializationMode() error  { return nil }

func (b *base) SetReal(refs []fmi.ValueRef, values []float64) error {
	for i, r := range refs {
		p, ok := b.reals[r]
		if !ok {
			return fmicore.NewError(fmicore.KindUnknownName, "fixtures: unknown value reference")
		}
		*p = values[i]
	}
	return nil
}

func (b *base) GetReal(refs []fmi.ValueRef, out []float64) error {
	for i, r := range refs {
		p, ok := b.reals[r]
		if !ok {
			return fmicore.NewError(fmicore.KindUnknownName, "fixtures: unknown value reference")
		}
		out[i] = *p
	}
	return nil
}

func (b *base) SetInteger([]fmi.ValueRef, []int64) error { return nil }
func (b *base) GetInteger([]fmi.ValueRef, []int64) error { return nil }
func (b *base) SetBoolean([]fmi.ValueRef, []bool) error  { return nil }
func (b *base) GetBoolean([]fmi.ValueRef, []bool) error  { return nil }
func (b *base) SetString([]fmi.ValueRef, []string) error { return nil }
func (b *base) GetString([]fmi.ValueRef, []string) error { return nil }

func (b *base) SetTime(t float64) error   { b.t = t; return nil }
func (b *base) GetTime() (float64, error) { return b.t, nil }

func (b *base) SetContinuousStates(x fmicore.StateVector) error {
	copy(b.x, x)
	return nil
}
func (b *base) GetContinuousStates(out fmicore.StateVector) error {
	copy(out, b.x)
	return nil
}

func (b *base) GetEventIndicators(out fmicore.EventIndicators) error { return nil }

func (b *base) EnterEventMode() error          { return nil }
func (b *base) EnterContinuousTimeMode() error { return nil }
func (b *base) CompletedIntegratorStep(noSetStatePriorToCurrentPoint bool) (fmi.StepInfo, error) {
	return fmi.StepInfo{}, nil
}
func (b *base) NewDiscreteStates() (fmi.DiscreteStatesInfo, error) {
	return fmi.DiscreteStatesInfo{}, nil
}

func (b *base) ProvidesDirectionalDerivative() bool { return b.providesJac }
func (b *base) GetDirectionalDerivative(unknownRefs, knownRefs []fmi.ValueRef, seed, out []float64) error {
	return fmicore.NewError(fmicore.KindFatal, "fixtures: directional derivative not implemented")
}

func (b *base) NStates() int          { return b.nStates }
func (b *base) NEventIndicators() int { return b.nIndicators }
func (b *base) Terminate() error      { return nil }
func (b *base) FreeInstance() error   { return nil }

// describe builds the minimal model-description this fixture needs: a
// model name and the continuous-state/event-indicator counts a driver
// consults for documentation purposes (the authoritative counts, used
// by the Handle, come from the capability's own NStates/NEventIndicators).
func describe(name string, nStates, nIndicators int) *modeldesc.Description {
	return &modeldesc.Description{
		ModelName:                name,
		NumberOfContinuousStates: nStates,
		NumberOfEventIndicators:  nIndicators,
	}
}
