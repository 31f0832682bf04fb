// Package fmi describes the capability contract a dynamical-model
// library exposes to the core. It is the Go equivalent of spec §6.1's
// function table: dynamic loading, GUID checks, and the native ABI
// itself are external collaborators — the core only ever talks to a
// value satisfying [Capability].
package fmi

import "fmigo/internal/fmicore"

// ValueRef identifies a scalar variable inside a model instance.
type ValueRef uint32

// ScalarType is the declared type of a model variable.
type ScalarType int

const (
	Real ScalarType = iota
	Integer
	Boolean
	String
)

// DiscreteStatesInfo is returned by NewDiscreteStates during the event
// handshake.
type DiscreteStatesInfo struct {
	NewDiscreteStatesNeeded bool
	TerminateSimulation     bool
	NextTimeEventDefined    bool
	NextTimeEvent           float64
}

// StepInfo is returned by CompletedIntegratorStep.
type StepInfo struct {
	EnterEventMode      bool
	TerminateSimulation bool
}

// Callbacks bundles the resources the core lends to a model instance.
// Logger is wired to log/slog by the caller; AllocateMemory/FreeMemory
// let a model request scratch space from the host process.
type Callbacks struct {
	Logger        func(instance, category, message string)
	AllocateMemory func(nobj, size uintptr) []byte
	FreeMemory     func(buf []byte)
}

// Capability is the function table a loaded model library provides.
// All methods except NStates/NEventIndicators/ProvidesDirectionalDerivative return a
// *fmicore.Error (nil on success) so a ModelHandle can propagate the
// taxonomy from spec §7 without inventing its own.
type Capability interface {
	Instantiate(name, guid, resourceLocation string, cb Callbacks, visible, loggingOn bool) error
	SetupExperiment(toleranceDefined bool, tolerance float64, startTime float64, stopTimeDefined bool, stopTime float64) error
	EnterInitializationMode() error
	ExitInitializationMode() error

	SetReal(refs []ValueRef, values []float64) error
	GetReal(refs []ValueRef, out []float64) error
	SetInteger(refs []ValueRef, values []int64) error
	GetInteger(refs []ValueRef, out []int64) error
	SetBoolean(refs []ValueRef, values []bool) error
	GetBoolean(refs []ValueRef, out []bool) error
	SetString(refs []ValueRef, values []string) error
	GetString(refs []ValueRef, out []string) error

	SetTime(t float64) error
	GetTime() (float64, error)
	SetContinuousStates(x fmicore.StateVector) error
	GetContinuousStates(out fmicore.StateVector) error
	GetDerivatives(out fmicore.StateVector) error
	GetEventIndicators(out fmicore.EventIndicators) error

	EnterEventMode() error
	NewDiscreteStates() (DiscreteStatesInfo, error)
	EnterContinuousTimeMode() error
	CompletedIntegratorStep(noSetStatePriorToCurrentPoint bool) (StepInfo, error)

	// ProvidesDirectionalDerivative reports whether GetDirectionalDerivative
	// is meaningful; NStates/NEventIndicators are fixed after Instantiate.
	ProvidesDirectionalDerivative() bool
	GetDirectionalDerivative(unknownRefs, knownRefs []ValueRef, seed []float64, out []float64) error

	NStates() int
	NEventIndicators() int

	Terminate() error
	FreeInstance() error
}
