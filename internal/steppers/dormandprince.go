package steppers

import "fmigo/internal/fmicore"

// Dormand-Prince 5(4) tableau, the same coefficients the teacher's
// RK45 integrator uses (see DESIGN.md).
var dormandPrinceTableau = tableau{
	c: []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1},
	a: [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	},
	b:    []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0, 0},
	bErr: []float64{5179.0 / 57600.0, 0, 7571.0 / 16695.0, 393.0 / 640.0, -92097.0 / 339200.0, 187.0 / 2100.0, 1.0 / 40.0},
}

// DormandPrince implements the adaptive Dormand-Prince 5(4) stepper (tag
// "dp") with dense output. Dense output uses cubic Hermite interpolation
// between the last accepted step's endpoints and derivatives — a
// simplification of the continuous DP extension that still satisfies
// the contract of landing on t+span without an extra model step.
type DormandPrince struct {
	nIndicators    int
	abstol, reltol *float64

	haveStep         bool
	t0, t1           float64
	x0, x1, f0, f1   fmicore.StateVector
}

func NewDormandPrince(nIndicators int) *DormandPrince { return &DormandPrince{nIndicators: nIndicators} }

func (d *DormandPrince) Props() Props {
	return Props{Tag: TagDormandPrince, Name: "Dormand-Prince 5(4)", Order: 5, Adaptive: true, Abstol: d.abstol, Reltol: d.reltol}
}

func (d *DormandPrince) SetTolerance(abstol, reltol float64) { d.abstol, d.reltol = &abstol, &reltol }

func (d *DormandPrince) step(model Model, x fmicore.StateVector, t, dtHint float64) (fmicore.StateVector, float64, float64, error) {
	abstol, reltol := d.Props().Tolerance(defaultAdaptiveAbstol, defaultAdaptiveReltol)
	dt := dtHint

	f0 := make(fmicore.StateVector, len(x))
	if err := evalStage(model, x, t, f0); err != nil {
		return nil, 0, 0, err
	}

	for attempt := 0; attempt < 32; attempt++ {
		xNew, errEst, err := rkStep(model, x, t, dt, dormandPrinceTableau)
		if err != nil {
			return nil, 0, 0, err
		}
		errRatio := errorNorm(x, xNew, errEst, abstol, reltol)
		dtNext := nextStepSize(dt, errRatio)
		if errRatio <= 1 || attempt == 31 {
			f1 := make(fmicore.StateVector, len(x))
			if err := evalStage(model, xNew, t+dt, f1); err != nil {
				return nil, 0, 0, err
			}
			d.haveStep = true
			d.t0, d.t1 = t, t+dt
			d.x0, d.x1, d.f0, d.f1 = x.Clone(), xNew, f0, f1
			return xNew, dt, dtNext, nil
		}
		dt = dtNext
	}
	return nil, 0, 0, fmicore.NewError(fmicore.KindModelFailure, "dormand-prince: step rejected too many times")
}

// Interpolate implements DenseOutput using cubic Hermite interpolation
// over the last accepted step.
func (d *DormandPrince) Interpolate(tOut float64, out fmicore.StateVector) bool {
	if !d.haveStep || tOut < d.t0 || tOut > d.t1 {
		return false
	}
	h := d.t1 - d.t0
	if h == 0 {
		copy(out, d.x1)
		return true
	}
	s := (tOut - d.t0) / h
	h00 := 2*s*s*s - 3*s*s + 1
	h10 := s*s*s - 2*s*s + s
	h01 := -2*s*s*s + 3*s*s
	h11 := s*s*s - s*s
	for i := range out {
		out[i] = h00*d.x0[i] + h10*h*d.f0[i] + h01*d.x1[i] + h11*h*d.f1[i]
	}
	return true
}

func (d *DormandPrince) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, d.nIndicators, d.step, d.Interpolate)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (d *DormandPrince) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, _, err := rkStep(model, state, t, dt, dormandPrinceTableau)
	if err != nil {
		return err
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, d.nIndicators))
}

func (d *DormandPrince) Reset() { d.haveStep = false }
