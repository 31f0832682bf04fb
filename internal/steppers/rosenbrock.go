package steppers

import (
	"fmigo/internal/fmicore"
)

// Rosenbrock implements a two-stage, second-order linearly implicit
// Rosenbrock stepper (tag "ro"), the one family in the catalogue that
// needs a Jacobian. It uses the model's directional derivative when available
// and the numerical fallback otherwise, supplied by whoever constructs
// the Driver via SetJacobian (see internal/driver).
//
// Coefficients are the ROS2 set (γ = 1 + 1/√2 on the diagonal, two
// stages), with the first stage's forward step as the embedded
// first-order error estimate; it is not a fourth-order method. The
// stage systems are solved with a hand-rolled LU factorization since no
// linear-algebra library appears anywhere in the reference pack.
type Rosenbrock struct {
	nIndicators    int
	abstol, reltol *float64
	jac            func(t float64, x fmicore.StateVector, out []float64) error

	haveStep       bool
	t0, t1         float64
	x0, x1, f0, f1 fmicore.StateVector
}

func NewRosenbrock(nIndicators int) *Rosenbrock { return &Rosenbrock{nIndicators: nIndicators} }

func (r *Rosenbrock) Props() Props {
	return Props{Tag: TagRosenbrock, Name: "Rosenbrock (ROS2)", Order: 2, Adaptive: true, Abstol: r.abstol, Reltol: r.reltol}
}

func (r *Rosenbrock) SetTolerance(abstol, reltol float64) { r.abstol, r.reltol = &abstol, &reltol }

// SetJacobian wires in the Jacobian evaluator (analytical or numerical
// fallback), satisfying steppers.NeedsJacobian.
func (r *Rosenbrock) SetJacobian(jac func(t float64, x fmicore.StateVector, out []float64) error) {
	r.jac = jac
}

const (
	rosGamma = 1.7071067811865475 // ROS2 diagonal gamma, 1 + 1/√2
	rosA21   = 1.0
	rosC21   = -2.0
)

func (r *Rosenbrock) step(model Model, x fmicore.StateVector, t, dtHint float64) (fmicore.StateVector, float64, float64, error) {
	if r.jac == nil {
		return nil, 0, 0, fmicore.NewError(fmicore.KindFatal, "rosenbrock: no jacobian wired")
	}
	abstol, reltol := r.Props().Tolerance(defaultAdaptiveAbstol, defaultAdaptiveReltol)
	n := len(x)
	dt := dtHint

	J := make([]float64, n*n)
	if err := r.jac(t, x, J); err != nil {
		return nil, 0, 0, err
	}

	for attempt := 0; attempt < 24; attempt++ {
		// W = I - dt*gamma*J, column-major J converted to row-major here.
		W := make([]float64, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				jij := J[j*n+i] // J stored column-major: J[col*n+row]
				val := -dt * rosGamma * jij
				if i == j {
					val += 1
				}
				W[i*n+j] = val
			}
		}
		if err := luDecompose(W, n); err != nil {
			return nil, 0, 0, err
		}

		f0 := make(fmicore.StateVector, n)
		if err := evalStage(model, x, t, f0); err != nil {
			return nil, 0, 0, err
		}

		k1 := make([]float64, n)
		copy(k1, f0)
		luSolve(W, n, k1)

		x2 := make(fmicore.StateVector, n)
		for i := 0; i < n; i++ {
			x2[i] = x[i] + rosA21*dt*k1[i]
		}
		f1 := make(fmicore.StateVector, n)
		if err := evalStage(model, x2, t+dt, f1); err != nil {
			return nil, 0, 0, err
		}
		rhs2 := make([]float64, n)
		for i := 0; i < n; i++ {
			rhs2[i] = f1[i] + rosC21*k1[i]
		}
		k2 := make([]float64, n)
		copy(k2, rhs2)
		luSolve(W, n, k2)

		xNew := make(fmicore.StateVector, n)
		xLow := make(fmicore.StateVector, n)
		for i := 0; i < n; i++ {
			xNew[i] = x[i] + dt*(1.5*k1[i]+0.5*k2[i])
			xLow[i] = x[i] + dt*k1[i]
		}

		errEst := xNew.Sub(xLow)
		errRatio := errorNorm(x, xNew, errEst, abstol, reltol)
		dtNext := nextStepSize(dt, errRatio)
		if errRatio <= 1 || attempt == 23 {
			r.haveStep = true
			r.t0, r.t1 = t, t+dt
			r.x0, r.x1, r.f0, r.f1 = x.Clone(), xNew, f0, f1
			return xNew, dt, dtNext, nil
		}
		dt = dtNext
	}
	return nil, 0, 0, fmicore.NewError(fmicore.KindModelFailure, "rosenbrock: step rejected too many times")
}

func (r *Rosenbrock) Interpolate(tOut float64, out fmicore.StateVector) bool {
	if !r.haveStep || tOut < r.t0 || tOut > r.t1 {
		return false
	}
	h := r.t1 - r.t0
	if h == 0 {
		copy(out, r.x1)
		return true
	}
	s := (tOut - r.t0) / h
	h00 := 2*s*s*s - 3*s*s + 1
	h10 := s*s*s - 2*s*s + s
	h01 := -2*s*s*s + 3*s*s
	h11 := s*s*s - s*s
	for i := range out {
		out[i] = h00*r.x0[i] + h10*h*r.f0[i] + h01*r.x1[i] + h11*h*r.f1[i]
	}
	return true
}

func (r *Rosenbrock) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, r.nIndicators, r.step, r.Interpolate)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (r *Rosenbrock) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, used, _, err := r.step(model, state, t, dt)
	if err != nil {
		return err
	}
	if used != dt {
		return fmicore.NewError(fmicore.KindModelFailure, "rosenbrock: constant step rejected by error control")
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, r.nIndicators))
}

func (r *Rosenbrock) Reset() { r.haveStep = false }
