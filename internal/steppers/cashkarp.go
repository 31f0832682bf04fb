package steppers

import "fmigo/internal/fmicore"

var cashKarpTableau = tableau{
	c: []float64{0, 1.0 / 5.0, 3.0 / 10.0, 3.0 / 5.0, 1, 7.0 / 8.0},
	a: [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{3.0 / 10.0, -9.0 / 10.0, 6.0 / 5.0},
		{-11.0 / 54.0, 5.0 / 2.0, -70.0 / 27.0, 35.0 / 27.0},
		{1631.0 / 55296.0, 175.0 / 512.0, 575.0 / 13824.0, 44275.0 / 110592.0, 253.0 / 4096.0},
	},
	b:    []float64{37.0 / 378.0, 0, 250.0 / 621.0, 125.0 / 594.0, 0, 512.0 / 1771.0},
	bErr: []float64{2825.0 / 27648.0, 0, 18575.0 / 48384.0, 13525.0 / 55296.0, 277.0 / 14336.0, 1.0 / 4.0},
}

// CashKarp implements the adaptive Cash-Karp 5(4) embedded pair (tag
// "ck"); no dense output.
type CashKarp struct {
	nIndicators    int
	abstol, reltol *float64
}

func NewCashKarp(nIndicators int) *CashKarp { return &CashKarp{nIndicators: nIndicators} }

func (c *CashKarp) Props() Props {
	return Props{Tag: TagCashKarp, Name: "Cash-Karp 5(4)", Order: 5, Adaptive: true, Abstol: c.abstol, Reltol: c.reltol}
}

// SetTolerance overrides the default 1e-6/1e-6 tolerances.
func (c *CashKarp) SetTolerance(abstol, reltol float64) { c.abstol, c.reltol = &abstol, &reltol }

func (c *CashKarp) step(model Model, x fmicore.StateVector, t, dtHint float64) (fmicore.StateVector, float64, float64, error) {
	abstol, reltol := c.Props().Tolerance(defaultAdaptiveAbstol, defaultAdaptiveReltol)
	dt := dtHint

	for attempt := 0; attempt < 32; attempt++ {
		xNew, errEst, err := rkStep(model, x, t, dt, cashKarpTableau)
		if err != nil {
			return nil, 0, 0, err
		}
		errRatio := errorNorm(x, xNew, errEst, abstol, reltol)
		dtNext := nextStepSize(dt, errRatio)
		if errRatio <= 1 || attempt == 31 {
			return xNew, dt, dtNext, nil
		}
		dt = dtNext
	}
	return nil, 0, 0, fmicore.NewError(fmicore.KindModelFailure, "cash-karp: step rejected too many times")
}

func (c *CashKarp) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, c.nIndicators, c.step, nil)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (c *CashKarp) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, _, err := rkStep(model, state, t, dt, cashKarpTableau)
	if err != nil {
		return err
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, c.nIndicators))
}

func (c *CashKarp) Reset() {}
