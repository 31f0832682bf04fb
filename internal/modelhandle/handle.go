// Package modelhandle wraps an [fmi.Capability] into the stateless MH
// contract described in spec §4.1: a thin capability object identified
// by its underlying instance, with no implicit caching between a setter
// and the next getter.
package modelhandle

import (
	"fmt"

	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// Handle is the Driver's sole means of talking to a foreign model.
type Handle struct {
	cap  fmi.Capability
	desc *modeldesc.Description

	nameToRef map[string]modeldesc.Variable
}

// New wraps cap, using desc for name-based lookups. desc.NumberOfContinuousStates
// and desc.NumberOfEventIndicators must match cap's own counts.
func New(cap fmi.Capability, desc *modeldesc.Description) *Handle {
	h := &Handle{cap: cap, desc: desc, nameToRef: make(map[string]modeldesc.Variable, len(desc.Variables))}
	for _, v := range desc.Variables {
		h.nameToRef[v.Name] = v
	}
	return h
}

// SetupExperiment forwards the default-experiment parameters (tolerance,
// start/stop time) read from the model description to the model.
func (h *Handle) SetupExperiment(toleranceDefined bool, tolerance, startTime float64, stopTimeDefined bool, stopTime float64) error {
	if err := h.cap.SetupExperiment(toleranceDefined, tolerance, startTime, stopTimeDefined, stopTime); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "setupExperiment", err)
	}
	return nil
}

// EnterInitializationMode begins the model's initialization phase.
func (h *Handle) EnterInitializationMode() error {
	if err := h.cap.EnterInitializationMode(); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "enterInitializationMode", err)
	}
	return nil
}

// ExitInitializationMode ends the model's initialization phase.
func (h *Handle) ExitInitializationMode() error {
	if err := h.cap.ExitInitializationMode(); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "exitInitializationMode", err)
	}
	return nil
}

// Terminate notifies the model that no further operations will occur.
func (h *Handle) Terminate() error {
	if err := h.cap.Terminate(); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "terminate", err)
	}
	return nil
}

// FreeInstance releases the model instance. The Handle must not be used
// afterward.
func (h *Handle) FreeInstance() error {
	if err := h.cap.FreeInstance(); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "freeInstance", err)
	}
	return nil
}

// Description returns the model description this handle was constructed
// with.
func (h *Handle) Description() *modeldesc.Description { return h.desc }

// NStates returns the fixed continuous-state count.
func (h *Handle) NStates() int { return h.cap.NStates() }

// NEventIndicators returns the fixed event-indicator count.
func (h *Handle) NEventIndicators() int { return h.cap.NEventIndicators() }

// ProvidesJacobian reports whether the model can supply directional
// derivatives; if false, Jacobian falls back to a numerical estimate.
func (h *Handle) ProvidesJacobian() bool { return h.cap.ProvidesDirectionalDerivative() }

// SetTime sets the model's current time.
func (h *Handle) SetTime(t float64) error {
	if err := h.cap.SetTime(t); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "setTime", err)
	}
	return nil
}

// GetTime returns the model's current time.
func (h *Handle) GetTime() (float64, error) {
	t, err := h.cap.GetTime()
	if err != nil {
		return 0, fmicore.Wrap(fmicore.KindModelFailure, "getTime", err)
	}
	return t, nil
}

// SetContinuousStates writes x into the model.
func (h *Handle) SetContinuousStates(x fmicore.StateVector) error {
	if err := h.cap.SetContinuousStates(x); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "setContinuousStates", err)
	}
	return nil
}

// GetContinuousStates reads the model's current continuous states into out.
func (h *Handle) GetContinuousStates(out fmicore.StateVector) error {
	if err := h.cap.GetContinuousStates(out); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "getContinuousStates", err)
	}
	return nil
}

// GetDerivatives evaluates dx/dt at the currently set (t, state).
func (h *Handle) GetDerivatives(out fmicore.StateVector) error {
	if err := h.cap.GetDerivatives(out); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "getDerivatives", err)
	}
	return nil
}

// GetEventIndicators evaluates the event indicator vector at the
// currently set (t, state).
func (h *Handle) GetEventIndicators(out fmicore.EventIndicators) error {
	if err := h.cap.GetEventIndicators(out); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "getEventIndicators", err)
	}
	return nil
}

// CompletedIntegratorStep notifies the model that a step was accepted.
func (h *Handle) CompletedIntegratorStep(noSetStatePriorToCurrentPoint bool) (fmi.StepInfo, error) {
	info, err := h.cap.CompletedIntegratorStep(noSetStatePriorToCurrentPoint)
	if err != nil {
		return fmi.StepInfo{}, fmicore.Wrap(fmicore.KindModelFailure, "completedIntegratorStep", err)
	}
	return info, nil
}

// EnterEventMode begins the discrete-update handshake.
func (h *Handle) EnterEventMode() error {
	if err := h.cap.EnterEventMode(); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "enterEventMode", err)
	}
	return nil
}

// NewDiscreteStates performs one iteration of the discrete-update fixed point.
func (h *Handle) NewDiscreteStates() (fmi.DiscreteStatesInfo, error) {
	info, err := h.cap.NewDiscreteStates()
	if err != nil {
		return fmi.DiscreteStatesInfo{}, fmicore.Wrap(fmicore.KindModelFailure, "newDiscreteStates", err)
	}
	return info, nil
}

// EnterContinuousTimeMode ends the discrete-update handshake.
func (h *Handle) EnterContinuousTimeMode() error {
	if err := h.cap.EnterContinuousTimeMode(); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "enterContinuousTimeMode", err)
	}
	return nil
}

// GetByName reads a Real-valued variable by name, returning a Discard
// error for an unknown name per spec §4.1 / §7.
func (h *Handle) GetByName(name string) (float64, error) {
	v, ok := h.nameToRef[name]
	if !ok {
		return 0, fmicore.NewError(fmicore.KindUnknownName, fmt.Sprintf("unknown variable %q", name))
	}
	out := make([]float64, 1)
	if err := h.cap.GetReal([]fmi.ValueRef{v.ValueReference}, out); err != nil {
		return 0, fmicore.Wrap(fmicore.KindModelFailure, "getReal", err)
	}
	return out[0], nil
}

// SetByName writes a Real-valued variable by name.
func (h *Handle) SetByName(name string, value float64) error {
	v, ok := h.nameToRef[name]
	if !ok {
		return fmicore.NewError(fmicore.KindUnknownName, fmt.Sprintf("unknown variable %q", name))
	}
	if err := h.cap.SetReal([]fmi.ValueRef{v.ValueReference}, []float64{value}); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "setReal", err)
	}
	return nil
}
