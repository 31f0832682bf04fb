package driver

import "fmigo/internal/fmicore"

// eventHandshake runs the newDiscreteStates fixed point of spec §4.4:
// enterEventMode, then iterate newDiscreteStates while the model still
// needs it, bounded by maxEventIterations, then enterContinuousTimeMode.
// A model-requested termination is logged, not acted upon.
func (d *Driver) eventHandshake() error {
	if err := d.handle.EnterEventMode(); err != nil {
		return err
	}

	needed := true
	for iterations := 0; needed && iterations < maxEventIterations; iterations++ {
		info, err := d.handle.NewDiscreteStates()
		if err != nil {
			return err
		}
		if info.NextTimeEventDefined {
			d.nextTimeEvent = info.NextTimeEvent
			d.nextTimeEventDefined = true
		}
		if info.TerminateSimulation {
			d.log.Warn("model requested termination during event handshake")
		}
		needed = info.NewDiscreteStatesNeeded
		if needed && iterations == maxEventIterations-1 {
			d.log.Warn("event handshake exceeded MAX_EVENT_ITERATIONS", "limit", maxEventIterations)
		}
	}

	return d.handle.EnterContinuousTimeMode()
}

// stepOverEvent implements the deterministic step-over-event policy of
// spec §4.4: an explicit Euler step of size tUpper-tLower using the
// derivative evaluated at tLower, landing exactly on tUpper, followed by
// the usual completed-step and event-handshake bookkeeping.
func (d *Driver) stepOverEvent(tLower, tUpper float64) error {
	dt := tUpper - tLower

	deriv := make(fmicore.StateVector, d.handle.NStates())
	if err := d.handle.GetDerivatives(deriv); err != nil {
		return err
	}
	for i := range d.state {
		d.state[i] += dt * deriv[i]
	}

	if err := d.handle.SetContinuousStates(d.state); err != nil {
		return err
	}
	if err := d.handle.SetTime(tUpper); err != nil {
		return err
	}

	stepInfo, err := d.handle.CompletedIntegratorStep(false)
	if err != nil {
		return err
	}
	if stepInfo.TerminateSimulation {
		d.log.Warn("model requested termination after step-over-event")
	}

	if err := d.eventHandshake(); err != nil {
		return err
	}
	if err := d.refreshIndicators(); err != nil {
		return err
	}

	d.stepper.Reset()
	d.currentTime = tUpper
	d.pending = fmicore.Clear()
	return nil
}
