package steppers

import (
	"math"

	"fmigo/internal/fmicore"
)

// bsSubsteps is the classical Bulirsch-Stoer sequence of substep counts
// used to drive modified-midpoint extrapolation.
var bsSubsteps = []int{2, 4, 6, 8, 10, 12, 14, 16}

// modifiedMidpoint advances x by H using n substeps of the modified
// midpoint method, per Bulirsch-Stoer.
func modifiedMidpoint(model Model, x fmicore.StateVector, t, H float64, n int) (fmicore.StateVector, error) {
	dim := len(x)
	h := H / float64(n)

	f := make(fmicore.StateVector, dim)
	if err := evalStage(model, x, t, f); err != nil {
		return nil, err
	}

	zPrev := x.Clone()
	z := make(fmicore.StateVector, dim)
	for i := 0; i < dim; i++ {
		z[i] = x[i] + h*f[i]
	}

	for m := 1; m < n; m++ {
		if err := evalStage(model, z, t+float64(m)*h, f); err != nil {
			return nil, err
		}
		for i := 0; i < dim; i++ {
			next := zPrev[i] + 2*h*f[i]
			zPrev[i] = z[i]
			z[i] = next
		}
	}

	if err := evalStage(model, z, t+H, f); err != nil {
		return nil, err
	}
	out := make(fmicore.StateVector, dim)
	for i := 0; i < dim; i++ {
		out[i] = 0.5 * (z[i] + zPrev[i] + h*f[i])
	}
	return out, nil
}

// BulirschStoer implements the adaptive, variable-order Bulirsch-Stoer
// extrapolation stepper (tag "bs") with dense output.
type BulirschStoer struct {
	nIndicators    int
	abstol, reltol *float64

	haveStep       bool
	t0, t1         float64
	x0, x1, f0, f1 fmicore.StateVector
}

func NewBulirschStoer(nIndicators int) *BulirschStoer { return &BulirschStoer{nIndicators: nIndicators} }

func (b *BulirschStoer) Props() Props {
	return Props{Tag: TagBulirschStoer, Name: "Bulirsch-Stoer", Order: 0, Adaptive: true, Abstol: b.abstol, Reltol: b.reltol}
}

func (b *BulirschStoer) SetTolerance(abstol, reltol float64) { b.abstol, b.reltol = &abstol, &reltol }

func (b *BulirschStoer) step(model Model, x fmicore.StateVector, t, dtHint float64) (fmicore.StateVector, float64, float64, error) {
	abstol, reltol := b.Props().Tolerance(defaultAdaptiveAbstol, defaultAdaptiveReltol)
	dim := len(x)
	H := dtHint

	for attempt := 0; attempt < 16; attempt++ {
		// Neville extrapolation table, one column per substep count tried.
		// table[0] always holds the current best (most-extrapolated)
		// estimate; its difference from table[1], the estimate one
		// extrapolation order lower, is the error estimate driving
		// convergence below.
		table := make([]fmicore.StateVector, len(bsSubsteps))
		var converged fmicore.StateVector
		var errRatio float64
		ok := false

		for k, n := range bsSubsteps {
			est, err := modifiedMidpoint(model, x, t, H, n)
			if err != nil {
				return nil, 0, 0, err
			}
			table[k] = est

			for j := k - 1; j >= 0; j-- {
				ratio := math.Pow(float64(bsSubsteps[k])/float64(bsSubsteps[j]), 2)
				blended := make(fmicore.StateVector, dim)
				for i := 0; i < dim; i++ {
					blended[i] = table[j+1][i] + (table[j+1][i]-table[j][i])/(ratio-1)
				}
				table[j] = blended
			}
			converged = table[0]

			if k >= 1 {
				errRatio = extrapolationErrorRatio(table, dim, x, abstol, reltol)
				if errRatio <= 1 {
					ok = true
					break
				}
			}
		}

		dtNext := nextStepSize(H, errRatio)
		if ok || attempt == 15 {
			f0 := make(fmicore.StateVector, dim)
			if err := evalStage(model, x, t, f0); err != nil {
				return nil, 0, 0, err
			}
			f1 := make(fmicore.StateVector, dim)
			if err := evalStage(model, converged, t+H, f1); err != nil {
				return nil, 0, 0, err
			}
			b.haveStep = true
			b.t0, b.t1 = t, t+H
			b.x0, b.x1, b.f0, b.f1 = x.Clone(), converged, f0, f1
			return converged, H, dtNext, nil
		}
		H = dtNext
	}
	return nil, 0, 0, fmicore.NewError(fmicore.KindModelFailure, "bulirsch-stoer: extrapolation did not converge")
}

func extrapolationErrorRatio(table []fmicore.StateVector, dim int, x fmicore.StateVector, abstol, reltol float64) float64 {
	sum := 0.0
	for i := 0; i < dim; i++ {
		scale := abstol + reltol*math.Abs(x[i])
		if scale == 0 {
			scale = abstol
		}
		d := (table[0][i] - table[1][i]) / scale
		sum += d * d
	}
	return math.Sqrt(sum / float64(dim))
}

func (b *BulirschStoer) Interpolate(tOut float64, out fmicore.StateVector) bool {
	if !b.haveStep || tOut < b.t0 || tOut > b.t1 {
		return false
	}
	h := b.t1 - b.t0
	if h == 0 {
		copy(out, b.x1)
		return true
	}
	s := (tOut - b.t0) / h
	h00 := 2*s*s*s - 3*s*s + 1
	h10 := s*s*s - 2*s*s + s
	h01 := -2*s*s*s + 3*s*s
	h11 := s*s*s - s*s
	for i := range out {
		out[i] = h00*b.x0[i] + h10*h*b.f0[i] + h01*b.x1[i] + h11*h*b.f1[i]
	}
	return true
}

func (b *BulirschStoer) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, b.nIndicators, b.step, b.Interpolate)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (b *BulirschStoer) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, used, _, err := b.step(model, state, t, dt)
	if err != nil {
		return err
	}
	if used != dt {
		return fmicore.NewError(fmicore.KindModelFailure, "bulirsch-stoer: constant step rejected by error control")
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, b.nIndicators))
}

func (b *BulirschStoer) Reset() { b.haveStep = false }
