package steppers

import "fmigo/internal/fmicore"

// Fehlberg 7(8) 13-stage tableau (Fehlberg 1968).
var fehlberg78Tableau = tableau{
	c: []float64{
		0,
		2.0 / 27.0,
		1.0 / 9.0,
		1.0 / 6.0,
		5.0 / 12.0,
		1.0 / 2.0,
		5.0 / 6.0,
		1.0 / 6.0,
		2.0 / 3.0,
		1.0 / 3.0,
		1,
		0,
		1,
	},
	a: [][]float64{
		{},
		{2.0 / 27.0},
		{1.0 / 36.0, 1.0 / 12.0},
		{1.0 / 24.0, 0, 1.0 / 8.0},
		{5.0 / 12.0, 0, -25.0 / 16.0, 25.0 / 16.0},
		{1.0 / 20.0, 0, 0, 1.0 / 4.0, 1.0 / 5.0},
		{-25.0 / 108.0, 0, 0, 125.0 / 108.0, -65.0 / 27.0, 125.0 / 54.0},
		{31.0 / 300.0, 0, 0, 0, 61.0 / 225.0, -2.0 / 9.0, 13.0 / 900.0},
		{2, 0, 0, -53.0 / 6.0, 704.0 / 45.0, -107.0 / 9.0, 67.0 / 90.0, 3},
		{-91.0 / 108.0, 0, 0, 23.0 / 108.0, -976.0 / 135.0, 311.0 / 54.0, -19.0 / 60.0, 17.0 / 6.0, -1.0 / 12.0},
		{2383.0 / 4100.0, 0, 0, -341.0 / 164.0, 4496.0 / 1025.0, -301.0 / 82.0, 2133.0 / 4100.0, 45.0 / 82.0, 45.0 / 164.0, 18.0 / 41.0},
		{3.0 / 205.0, 0, 0, 0, 0, -6.0 / 41.0, -3.0 / 205.0, -3.0 / 41.0, 3.0 / 41.0, 6.0 / 41.0, 0},
		{-1777.0 / 4100.0, 0, 0, -341.0 / 164.0, 4496.0 / 1025.0, -289.0 / 82.0, 2193.0 / 4100.0, 51.0 / 82.0, 33.0 / 164.0, 12.0 / 41.0, 0, 1},
	},
	bErr: []float64{
		41.0 / 840.0, 0, 0, 0, 0, 34.0 / 105.0, 9.0 / 35.0, 9.0 / 35.0, 9.0 / 280.0, 9.0 / 280.0, 41.0 / 840.0, 0, 0,
	},
	b: []float64{
		0, 0, 0, 0, 0, 34.0 / 105.0, 9.0 / 35.0, 9.0 / 35.0, 9.0 / 280.0, 9.0 / 280.0, 0, 41.0 / 840.0, 41.0 / 840.0,
	},
}

// Fehlberg78 implements the adaptive Fehlberg 7(8) stepper (tag "fe");
// no dense output — the 8th-order solution is used directly.
type Fehlberg78 struct {
	nIndicators    int
	abstol, reltol *float64
}

func NewFehlberg78(nIndicators int) *Fehlberg78 { return &Fehlberg78{nIndicators: nIndicators} }

func (f *Fehlberg78) Props() Props {
	return Props{Tag: TagFehlberg78, Name: "Fehlberg 7(8)", Order: 8, Adaptive: true, Abstol: f.abstol, Reltol: f.reltol}
}

func (f *Fehlberg78) SetTolerance(abstol, reltol float64) { f.abstol, f.reltol = &abstol, &reltol }

func (f *Fehlberg78) step(model Model, x fmicore.StateVector, t, dtHint float64) (fmicore.StateVector, float64, float64, error) {
	abstol, reltol := f.Props().Tolerance(defaultAdaptiveAbstol, defaultAdaptiveReltol)
	dt := dtHint

	for attempt := 0; attempt < 32; attempt++ {
		xNew, errEst, err := rkStep(model, x, t, dt, fehlberg78Tableau)
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
	return nil, 0, 0, fmicore.NewError(fmicore.KindModelFailure, "fehlberg78: step rejected too many times")
}

func (f *Fehlberg78) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, f.nIndicators, f.step, nil)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (f *Fehlberg78) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, _, err := rkStep(model, state, t, dt, fehlberg78Tableau)
	if err != nil {
		return err
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, f.nIndicators))
}

func (f *Fehlberg78) Reset() {}
