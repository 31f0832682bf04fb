package fixtures

import (
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// Stiff2 is scenario 2 of spec §8: a single state whose derivative is a
// directly settable rate parameter k, used to exercise the numerical
// Jacobian fallback on a trivially-known derivative.
type Stiff2 struct {
	base
	k float64
}

// NewStiff2 returns the model at x(0)=0, k=1.
func NewStiff2() *Stiff2 {
	s := &Stiff2{base: newBase(1, 0, false), k: 1.0}
	s.reals[0] = &s.k
	return s
}

func (s *Stiff2) Description() *modeldesc.Description {
	d := describe("stiff2", 1, 0)
	d.Variables = []modeldesc.Variable{{Name: "k", ValueReference: 0, Type: fmi.Real, TypeName: "Real", Causality: modeldesc.CausalityParameter}}
	return d
}

func (s *Stiff2) GetDerivatives(out fmicore.StateVector) error {
	out[0] = s.k
	return nil
}
