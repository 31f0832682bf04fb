package fixtures

import (
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
)

// Robertson is scenario 4 of spec §8: the classic three-species
// chemical-kinetics stiff system,
//
//	dy1/dt = -0.04*y1 + 1e4*y2*y3
//	dy2/dt =  0.04*y1 - 1e4*y2*y3 - 3e7*y2^2
//	dy3/dt =                        3e7*y2^2
//
// This fixture advertises directional-derivative support, so its
// Jacobian is assembled from GetDirectionalDerivative rather than the
// numerical fallback.
type Robertson struct {
	base
}

const (
	robertsonK1 = 0.04
	robertsonK2 = 1e4
	robertsonK3 = 3e7
)

// NewRobertson returns the model with three continuous states and no
// event indicators.
func NewRobertson() *Robertson {
	return &Robertson{base: newBase(3, 0, true)}
}

func (r *Robertson) Description() *modeldesc.Description {
	return describe("robertson", 3, 0)
}

func (r *Robertson) GetDerivatives(out fmicore.StateVector) error {
	y1, y2, y3 := r.x[0], r.x[1], r.x[2]
	r1 := robertsonK1 * y1
	r2 := robertsonK2 * y2 * y3
	r3 := robertsonK3 * y2 * y2
	out[0] = -r1 + r2
	out[1] = r1 - r2 - r3
	out[2] = r3
	return nil
}

// jacobian returns d(f_i)/d(y_j) at the model's current state.
func (r *Robertson) jacobian() [3][3]float64 {
	y2, y3 := r.x[1], r.x[2]
	return [3][3]float64{
		{-robertsonK1, robertsonK2 * y3, robertsonK2 * y2},
		{robertsonK1, -robertsonK2*y3 - 2*robertsonK3*y2, -robertsonK2 * y2},
		{0, 2 * robertsonK3 * y2, 0},
	}
}

// GetDirectionalDerivative returns J*seed, where J is the analytical
// Jacobian at the current state; unknownRefs/knownRefs both index the
// state vector 0..2, matching modelhandle's column-by-column assembly.
func (r *Robertson) GetDirectionalDerivative(unknownRefs, knownRefs []fmi.ValueRef, seed, out []float64) error {
	j := r.jacobian()
	for i := range out {
		sum := 0.0
		for k := range seed {
			sum += j[i][k] * seed[k]
		}
		out[i] = sum
	}
	return nil
}
