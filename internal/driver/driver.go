// Package driver implements the Model-Exchange Driver (MED): the public
// façade that owns a ModelHandle, an Integration Engine, and a Stepper,
// and drives simulated time forward through integrate() while tracking
// the event latch, per spec §4.4.
package driver

import (
	"log/slog"
	"math"

	"fmigo/internal/engine"
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
	"fmigo/internal/modelhandle"
	"fmigo/internal/steppers"
)

// maxEventIterations bounds the newDiscreteStates fixed-point loop.
const maxEventIterations = 5

// Config selects the stepper family and the driver's operating mode.
// Abstol/Reltol are nil when the caller wants the model's default
// experiment (or the stepper's own default) honored instead.
type Config struct {
	Stepper              steppers.Tag
	Abstol, Reltol       *float64
	StopBeforeEvent      bool
	EventSearchPrecision float64
	Logger               *slog.Logger
}

// Driver is the Model-Exchange Driver. A Driver instance is not safe for
// concurrent use; the core is single-threaded cooperative per spec §5.
type Driver struct {
	handle  *modelhandle.Handle
	stepper steppers.Stepper
	cfg     Config
	log     *slog.Logger

	state          fmicore.StateVector
	prevIndicators fmicore.EventIndicators
	currentTime    float64

	nextTimeEvent        float64
	nextTimeEventDefined bool
	pending              fmicore.PendingEvent

	rb *snapshot

	ring          []HistoryEntry
	checkForEvent func(HistoryEntry) bool
	handleEventFn func(HistoryEntry)
}

// Instantiate wraps cap and desc into a Driver, constructing the
// configured stepper family. It does not touch the model beyond
// selecting and configuring the stepper; call Initialize before
// integrating.
func Instantiate(cap fmi.Capability, desc *modeldesc.Description, cfg Config) (*Driver, error) {
	if cfg.EventSearchPrecision <= 0 {
		cfg.EventSearchPrecision = 1e-4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := modelhandle.New(cap, desc)
	st, err := steppers.New(cfg.Stepper, h.NEventIndicators())
	if err != nil {
		return nil, fmicore.Wrap(fmicore.KindFatal, "instantiate: selecting stepper", err)
	}

	d := &Driver{
		handle:               h,
		stepper:              st,
		cfg:                  cfg,
		log:                  logger,
		nextTimeEvent:        math.Inf(1),
		nextTimeEventDefined: false,
		pending:              fmicore.Clear(),
	}
	d.log.Debug("driver instantiated", "model", desc.ModelName, "stepper", st.Props().Name)
	return d, nil
}

// Initialize enters and exits the model's initialization mode, imposes
// the resolved tolerance on the stepper, wires the Jacobian evaluator,
// captures the initial state, and runs the initial event handshake.
func (d *Driver) Initialize() error {
	if err := d.handle.EnterInitializationMode(); err != nil {
		return err
	}

	desc := d.handle.Description()
	exp := desc.DefaultExperiment

	tolDefined := false
	var tol float64
	if d.cfg.Abstol != nil {
		tolDefined, tol = true, *d.cfg.Abstol
	} else if exp.Tolerance != nil {
		tolDefined, tol = true, *exp.Tolerance
	}

	var start float64
	if exp.StartTime != nil {
		start = *exp.StartTime
	}
	stopDefined := exp.StopTime != nil
	var stop float64
	if stopDefined {
		stop = *exp.StopTime
	}

	if err := d.handle.SetupExperiment(tolDefined, tol, start, stopDefined, stop); err != nil {
		return err
	}

	if tolDefined {
		if adj, ok := d.stepper.(interface{ SetTolerance(abstol, reltol float64) }); ok {
			rel := tol
			if d.cfg.Reltol != nil {
				rel = *d.cfg.Reltol
			}
			adj.SetTolerance(tol, rel)
		}
	}

	if err := d.handle.ExitInitializationMode(); err != nil {
		return err
	}

	if needsJac, ok := d.stepper.(steppers.NeedsJacobian); ok {
		needsJac.SetJacobian(d.handle.Jacobian)
	}

	d.currentTime = start
	if err := d.handle.SetTime(d.currentTime); err != nil {
		return err
	}

	d.state = make(fmicore.StateVector, d.handle.NStates())
	if d.handle.NStates() > 0 {
		if err := d.handle.GetContinuousStates(d.state); err != nil {
			return err
		}
	}

	if err := d.eventHandshake(); err != nil {
		return err
	}

	d.prevIndicators = make(fmicore.EventIndicators, d.handle.NEventIndicators())
	if d.handle.NEventIndicators() > 0 {
		if err := d.handle.GetEventIndicators(d.prevIndicators); err != nil {
			return err
		}
	}

	d.log.Info("driver initialized",
		"model", desc.ModelName,
		"stepper", d.stepper.Props().Name,
		"nStates", d.handle.NStates(),
		"nEventIndicators", d.handle.NEventIndicators())
	return nil
}

// Time returns the driver's current simulated time.
func (d *Driver) Time() float64 { return d.currentTime }

// State returns a defensive copy of the driver's current continuous
// state.
func (d *Driver) State() fmicore.StateVector { return d.state.Clone() }

// Pending returns the currently latched event, if any.
func (d *Driver) Pending() fmicore.PendingEvent { return d.pending }

// RewindTime decrements the driver's time by delta and pushes the new
// time to the model without replaying derivatives, per spec §4.4.
func (d *Driver) RewindTime(delta float64) error {
	d.currentTime -= delta
	return d.handle.SetTime(d.currentTime)
}

// Integrate advances the driver from its current time toward tEnd,
// implementing the seven-step contract of spec §4.4: step-over any
// latched event first, clamp for a scheduled time event, run the
// Integration Engine, then classify and act on whatever it reports. It
// returns the driver's time after the call, which may be short of tEnd
// if an event was latched under stop-before-event mode.
//
// Per spec §4.4.1, a request with tEnd before currentTime is treated as
// a rollback: if a saved snapshot covers tEnd, the driver restores it
// and continues integrating forward from there; otherwise the call
// fails with fmicore.Discard.
func (d *Driver) Integrate(tEnd, dtHint float64) (float64, error) {
	if tEnd < d.currentTime {
		if d.rb == nil || d.rb.t > tEnd {
			return d.currentTime, fmicore.NewError(fmicore.KindRangeViolation, "integrate: tEnd precedes currentTime and no covering rollback snapshot exists")
		}
		if err := d.rollback(); err != nil {
			return d.currentTime, err
		}
	}

	if d.handle.NStates() == 0 {
		return d.integrateDegenerate(tEnd)
	}

	if d.cfg.StopBeforeEvent && !d.pending.None() {
		if err := d.stepOverEvent(d.pending.TLower, d.pending.TUpper); err != nil {
			return d.currentTime, err
		}
	}

	if d.nextTimeEventDefined && d.nextTimeEvent <= tEnd {
		tEnd = d.nextTimeEvent - d.cfg.EventSearchPrecision/2
	}

	newT, info, err := engine.Integrate(d.handle, d.stepper, d.state, d.currentTime, tEnd, dtHint, d.cfg.EventSearchPrecision)
	if err != nil {
		return d.currentTime, err
	}

	switch {
	case info.StepEvent:
		if err := d.eventHandshake(); err != nil {
			return d.currentTime, err
		}
		if err := d.refreshIndicators(); err != nil {
			return d.currentTime, err
		}
		d.currentTime = newT

	case info.StateEvent:
		if d.cfg.StopBeforeEvent {
			d.pending = fmicore.PendingEvent{Kind: fmicore.PendingState, TLower: info.TLower, TUpper: info.TUpper}
			d.currentTime = info.TLower
		} else if err := d.stepOverEvent(info.TLower, info.TUpper); err != nil {
			return d.currentTime, err
		}

	default:
		if d.nextTimeEventDefined && d.nextTimeEvent <= tEnd+d.cfg.EventSearchPrecision/2 {
			lo, hi := tEnd, tEnd+d.cfg.EventSearchPrecision
			if d.cfg.StopBeforeEvent {
				d.pending = fmicore.PendingEvent{Kind: fmicore.PendingTime, TLower: lo, TUpper: hi}
				d.currentTime = tEnd
			} else if err := d.stepOverEvent(lo, hi); err != nil {
				return d.currentTime, err
			}
		} else {
			d.currentTime = newT
		}
	}

	return d.currentTime, nil
}

func (d *Driver) refreshIndicators() error {
	if d.handle.NEventIndicators() == 0 {
		return nil
	}
	return d.handle.GetEventIndicators(d.prevIndicators)
}

// integrateDegenerate implements the nStates == 0 path of spec §4.4
// step 1: a model with no continuous states still needs the event
// machinery, driven purely by time advancement and indicator sampling.
func (d *Driver) integrateDegenerate(tEnd float64) (float64, error) {
	if d.cfg.StopBeforeEvent && !d.pending.None() {
		if _, err := d.handle.CompletedIntegratorStep(false); err != nil {
			return d.currentTime, err
		}
		if err := d.eventHandshake(); err != nil {
			return d.currentTime, err
		}
		if err := d.refreshIndicators(); err != nil {
			return d.currentTime, err
		}
		d.pending = fmicore.Clear()
	}

	if d.nextTimeEventDefined && d.nextTimeEvent <= tEnd {
		tEnd = d.nextTimeEvent
	}

	if err := d.handle.SetTime(tEnd); err != nil {
		return d.currentTime, err
	}

	if d.handle.NEventIndicators() > 0 {
		cur := make(fmicore.EventIndicators, d.handle.NEventIndicators())
		if err := d.handle.GetEventIndicators(cur); err != nil {
			return d.currentTime, err
		}
		if _, changed := fmicore.SignChanged(d.prevIndicators, cur); changed {
			if d.cfg.StopBeforeEvent {
				d.pending = fmicore.PendingEvent{Kind: fmicore.PendingState, TLower: d.currentTime, TUpper: tEnd}
			} else if err := d.eventHandshake(); err != nil {
				return d.currentTime, err
			}
		}
		copy(d.prevIndicators, cur)
	}

	d.currentTime = tEnd
	return tEnd, nil
}
