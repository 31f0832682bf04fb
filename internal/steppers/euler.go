package steppers

import "fmigo/internal/fmicore"

// Euler implements the fixed forward-Euler stepper (tag "eu"), order 1,
// non-adaptive, reporting an infinite tolerance per spec §4.2.
type Euler struct {
	nIndicators int
}

// NewEuler constructs a forward-Euler stepper for a model with the given
// event-indicator count.
func NewEuler(nIndicators int) *Euler {
	return &Euler{nIndicators: nIndicators}
}

func (e *Euler) Props() Props {
	return Props{Tag: TagEuler, Name: "forward Euler", Order: 1, Adaptive: false}
}

func (e *Euler) eulerStep(model Model, x fmicore.StateVector, t, dt float64) (fmicore.StateVector, float64, float64, error) {
	dx := make(fmicore.StateVector, len(x))
	if err := evalStage(model, x, t, dx); err != nil {
		return nil, 0, 0, err
	}
	xNew := make(fmicore.StateVector, len(x))
	for i := range x {
		xNew[i] = x[i] + dt*dx[i]
	}
	return xNew, dt, dt, nil
}

func (e *Euler) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, e.nIndicators, e.eulerStep, nil)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (e *Euler) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, _, _, err := e.eulerStep(model, state, t, dt)
	if err != nil {
		return err
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, e.nIndicators))
}

func (e *Euler) Reset() {}
