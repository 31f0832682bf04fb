package steppers

import (
	"math"

	"fmigo/internal/fmicore"
)

// tableau is a classical explicit Runge-Kutta Butcher tableau. b gives
// the propagating solution's weights; bErr, when non-nil, gives the
// embedded lower-order weights used for adaptive error estimation
// (errEst = dt * sum((b[i]-bErr[i]) * k[i])).
type tableau struct {
	c    []float64
	a    [][]float64
	b    []float64
	bErr []float64
}

// evalStage sets (t, x) on the model and returns the derivative there.
// Every RK stage is a real call into the model, matching the "no
// implicit caching" rule in spec §4.1.
func evalStage(model Model, x fmicore.StateVector, t float64, out fmicore.StateVector) error {
	if err := model.SetTime(t); err != nil {
		return err
	}
	if err := model.SetContinuousStates(x); err != nil {
		return err
	}
	return model.GetDerivatives(out)
}

// rkStep advances x by dt using tb, returning the new state and, if tb
// has an embedded estimator, the per-component error estimate (nil
// otherwise). It leaves the model positioned at the final evaluation of
// the last stage, which callers overwrite via commit() immediately after.
func rkStep(model Model, x fmicore.StateVector, t, dt float64, tb tableau) (xNew fmicore.StateVector, errEst fmicore.StateVector, err error) {
	n := len(x)
	s := len(tb.c)
	k := make([]fmicore.StateVector, s)
	scratch := make(fmicore.StateVector, n)

	for i := 0; i < s; i++ {
		copy(scratch, x)
		for j := 0; j < i; j++ {
			coef := tb.a[i][j]
			if coef == 0 {
				continue
			}
			for idx := 0; idx < n; idx++ {
				scratch[idx] += dt * coef * k[j][idx]
			}
		}
		k[i] = make(fmicore.StateVector, n)
		if err := evalStage(model, scratch, t+tb.c[i]*dt, k[i]); err != nil {
			return nil, nil, err
		}
	}

	xNew = make(fmicore.StateVector, n)
	copy(xNew, x)
	for i := 0; i < s; i++ {
		if tb.b[i] == 0 {
			continue
		}
		for idx := 0; idx < n; idx++ {
			xNew[idx] += dt * tb.b[i] * k[i][idx]
		}
	}

	if tb.bErr != nil {
		errEst = make(fmicore.StateVector, n)
		for i := 0; i < s; i++ {
			d := tb.b[i] - tb.bErr[i]
			if d == 0 {
				continue
			}
			for idx := 0; idx < n; idx++ {
				errEst[idx] += dt * d * k[i][idx]
			}
		}
	}

	return xNew, errEst, nil
}

// errorNorm computes the scaled RMS error used by the adaptive step-size
// controllers, in the style of Numerical Recipes' embedded RK error norm.
func errorNorm(x, xNew, errEst fmicore.StateVector, abstol, reltol float64) float64 {
	n := len(x)
	sum := 0.0
	for i := 0; i < n; i++ {
		scale := abstol + reltol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		if scale == 0 {
			scale = abstol
		}
		e := errEst[i] / scale
		sum += e * e
	}
	return math.Sqrt(sum / float64(n))
}

const (
	pgrow   = -0.2
	pshrink = -0.25
	safety  = 0.9
	minScale = 0.2
	maxScale = 5.0
)

// nextStepSize applies the standard PI-free step-size controller: shrink
// on rejection using pshrink, grow on acceptance using pgrow, clamped to
// [minScale, maxScale] * dt.
func nextStepSize(dt, errRatio float64) float64 {
	var scale float64
	if errRatio == 0 {
		scale = maxScale
	} else if errRatio > 1 {
		scale = math.Max(minScale, safety*math.Pow(errRatio, pshrink))
	} else {
		scale = math.Min(maxScale, safety*math.Pow(errRatio, pgrow))
	}
	return dt * scale
}
