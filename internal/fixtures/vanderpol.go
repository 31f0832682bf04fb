package fixtures

import (
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// VanDerPol is scenario 3 of spec §8: the Van der Pol oscillator,
// state [x1, x2] with
//
//	dx1/dt = x2
//	dx2/dt = mu*(1-x1^2)*x2 - x1
//
// exercising the numerical Jacobian fallback since this fixture does
// not advertise directional-derivative support.
type VanDerPol struct {
	base
	mu float64
}

// NewVanDerPol returns the model at the origin with the given mu.
func NewVanDerPol(mu float64) *VanDerPol {
	v := &VanDerPol{base: newBase(2, 0, false), mu: mu}
	v.reals[0] = &v.mu
	return v
}

func (v *VanDerPol) Description() *modeldesc.Description {
	d := describe("vanderpol", 2, 0)
	d.Variables = []modeldesc.Variable{{Name: "mu", ValueReference: 0, Type: fmi.Real, TypeName: "Real", Causality: modeldesc.CausalityParameter}}
	return d
}

func (v *VanDerPol) GetDerivatives(out fmicore.StateVector) error {
	x1, x2 := v.x[0], v.x[1]
	out[0] = x2
	out[1] = v.mu*(1-x1*x1)*x2 - x1
	return nil
}

// AnalyticJacobian returns the exact Jacobian at the model's current
// state, for tests to compare against the numerical fallback without
// depending on the fallback's own accuracy.
func (v *VanDerPol) AnalyticJacobian() [2][2]float64 {
	x1, x2 := v.x[0], v.x[1]
	return [2][2]float64{
		{0, 1},
		{-2*v.mu*x1*x2 - 1, v.mu * (1 - x1*x1)},
	}
}
