package steppers

import "fmigo/internal/fmicore"

var rk4Tableau = tableau{
	c: []float64{0, 0.5, 0.5, 1},
	a: [][]float64{
		{},
		{0.5},
		{0, 0.5},
		{0, 0, 1},
	},
	b: []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0},
}

// RK4 implements the classic fixed-step 4th-order Runge-Kutta stepper
// (tag "rk"), non-adaptive.
type RK4 struct {
	nIndicators int
}

func NewRK4(nIndicators int) *RK4 { return &RK4{nIndicators: nIndicators} }

func (r *RK4) Props() Props {
	return Props{Tag: TagRK4, Name: "classic Runge-Kutta", Order: 4, Adaptive: false}
}

func (r *RK4) rk4Step(model Model, x fmicore.StateVector, t, dt float64) (fmicore.StateVector, float64, float64, error) {
	xNew, _, err := rkStep(model, x, t, dt, rk4Tableau)
	if err != nil {
		return nil, 0, 0, err
	}
	return xNew, dt, dt, nil
}

func (r *RK4) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, r.nIndicators, r.rk4Step, nil)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (r *RK4) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, _, _, err := r.rk4Step(model, state, t, dt)
	if err != nil {
		return err
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, r.nIndicators))
}

func (r *RK4) Reset() {}
