package fixtures

import (
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// Zigzag is scenario 1 of spec §8: dx/dt = k with k starting at +1 and
// set to -1 at the state event where x crosses 1, located by the event
// indicator g = 1 - x.
type Zigzag struct {
	base
	k float64
}

// NewZigzag returns the model at its scenario starting point (t=0, x=0,
// k=+1).
func NewZigzag() *Zigzag {
	z := &Zigzag{base: newBase(1, 1, false), k: 1.0}
	z.reals[0] = &z.k
	return z
}

// Description returns the minimal model description for this fixture.
func (z *Zigzag) Description() *modeldesc.Description {
	d := describe("zigzag", 1, 1)
	d.Variables = []modeldesc.Variable{{Name: "k", ValueReference: 0, Type: fmi.Real, TypeName: "Real", Causality: modeldesc.CausalityParameter}}
	return d
}

func (z *Zigzag) GetDerivatives(out fmicore.StateVector) error {
	out[0] = z.k
	return nil
}

func (z *Zigzag) GetEventIndicators(out fmicore.EventIndicators) error {
	out[0] = 1 - z.x[0]
	return nil
}

// NewDiscreteStates sets k to -1 once x has passed 1 (g < 0), the
// model's only discrete update; called with x still at or below 1 (as in
// the initialization handshake) it leaves k unchanged. It never needs a
// second handshake iteration.
func (z *Zigzag) NewDiscreteStates() (fmi.DiscreteStatesInfo, error) {
	if z.x[0] > 1 {
		z.k = -1
	}
	return fmi.DiscreteStatesInfo{}, nil
}
