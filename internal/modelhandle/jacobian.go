package modelhandle

import (
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
)

// sixthOrderStencil holds the coefficients of the 6th-order centered
// finite-difference approximation of f'(x) using 6 symmetric points:
//
//	f'(x) ≈ (-f(x-3h) + 9f(x-2h) - 45f(x-h) + 45f(x+h) - 9f(x+2h) + f(x+3h)) / (60h)
var sixthOrderStencil = []struct {
	offset int
	weight float64
}{
	{-3, -1.0 / 60.0},
	{-2, 9.0 / 60.0},
	{-1, -45.0 / 60.0},
	{1, 45.0 / 60.0},
	{2, -9.0 / 60.0},
	{3, 1.0 / 60.0},
}

// Jacobian fills out (column-major, n×n, out[col*n+row]) with ∂f_row/∂x_col
// evaluated at the state currently set on the model. It requires the
// caller to have already called SetContinuousStates for the point of
// evaluation. When the model advertises directional-derivative support
// the exact Jacobian is assembled column-by-column via unit seeds;
// otherwise a numerical fallback uses the 6th-order centered-difference
// stencil above, in state coordinates, per spec §4.1.
func (h *Handle) Jacobian(t float64, x fmicore.StateVector, out []float64) error {
	n := len(x)
	if len(out) != n*n {
		return fmicore.NewError(fmicore.KindRangeViolation, "jacobian output buffer size mismatch")
	}

	if h.ProvidesJacobian() {
		return h.jacobianAnalytical(x, out)
	}
	return h.jacobianNumerical(t, x, out)
}

func (h *Handle) jacobianAnalytical(x fmicore.StateVector, out []float64) error {
	n := len(x)
	seed := make([]float64, n)
	col := make([]float64, n)
	unknowns := make([]fmi.ValueRef, n)
	knowns := make([]fmi.ValueRef, n)
	for i := range unknowns {
		unknowns[i] = fmi.ValueRef(i)
		knowns[i] = fmi.ValueRef(i)
	}

	for j := 0; j < n; j++ {
		for i := range seed {
			seed[i] = 0
		}
		seed[j] = 1
		if err := h.cap.GetDirectionalDerivative(unknowns, knowns, seed, col); err != nil {
			return fmicore.Wrap(fmicore.KindModelFailure, "getDirectionalDerivative", err)
		}
		for i := 0; i < n; i++ {
			out[j*n+i] = col[i]
		}
	}
	return nil
}

func (h *Handle) jacobianNumerical(t float64, x fmicore.StateVector, out []float64) error {
	n := len(x)
	const h0 = 1e-5

	perturbed := x.Clone()
	fPlus := make(fmicore.StateVector, n)
	acc := make(fmicore.StateVector, n)

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			acc[i] = 0
		}
		step := h0 * (1 + abs(x[j]))

		for _, term := range sixthOrderStencil {
			copy(perturbed, x)
			perturbed[j] = x[j] + float64(term.offset)*step

			if err := h.cap.SetTime(t); err != nil {
				return fmicore.Wrap(fmicore.KindModelFailure, "setTime", err)
			}
			if err := h.cap.SetContinuousStates(perturbed); err != nil {
				return fmicore.Wrap(fmicore.KindModelFailure, "setContinuousStates", err)
			}
			if err := h.cap.GetDerivatives(fPlus); err != nil {
				return fmicore.Wrap(fmicore.KindModelFailure, "getDerivatives", err)
			}
			for i := 0; i < n; i++ {
				acc[i] += term.weight * fPlus[i]
			}
		}

		for i := 0; i < n; i++ {
			out[j*n+i] = acc[i] / step
		}
	}

	// restore the evaluation point the caller expects to remain current
	if err := h.cap.SetTime(t); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "setTime", err)
	}
	if err := h.cap.SetContinuousStates(x); err != nil {
		return fmicore.Wrap(fmicore.KindModelFailure, "setContinuousStates", err)
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
