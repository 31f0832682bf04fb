package steppers

import "fmigo/internal/fmicore"

// abmOrder is the fixed multistep order of the built-in
// Adams-Bashforth-Moulton stepper (tag "abm").
const abmOrder = 5

// AB5 predictor and AM4-corrector-style coefficients for a fixed-step,
// fixed-order-5 Adams-Bashforth-Moulton pair.
var (
	ab5Coeffs = []float64{1901.0 / 720.0, -2774.0 / 720.0, 2616.0 / 720.0, -1274.0 / 720.0, 251.0 / 720.0}
	am4Coeffs = []float64{251.0 / 720.0, 646.0 / 720.0, -264.0 / 720.0, 106.0 / 720.0, -19.0 / 720.0}
)

// AdamsMoulton implements the fixed-order-5 Adams-Bashforth-Moulton
// predictor-corrector (tag "abm"), non-adaptive. It self-starts with
// RK4 for the first abmOrder-1 steps, matching the common practice of
// bootstrapping a multistep method with a one-step method of the same
// order.
type AdamsMoulton struct {
	nIndicators int
	startup     *RK4

	// history[0] is the most recent derivative evaluation.
	history []fmicore.StateVector
	dtHistory float64
}

func NewAdamsMoulton(nIndicators int) *AdamsMoulton {
	return &AdamsMoulton{nIndicators: nIndicators, startup: NewRK4(nIndicators)}
}

func (a *AdamsMoulton) Props() Props {
	return Props{Tag: TagAdamsMoulton, Name: "Adams-Bashforth-Moulton (fixed order 5)", Order: 5, Adaptive: false}
}

func (a *AdamsMoulton) step(model Model, x fmicore.StateVector, t, dt float64) (fmicore.StateVector, float64, float64, error) {
	if len(a.history) < abmOrder || a.dtHistory != dt {
		// Bootstrap (or dt changed underneath us): fall back to RK4 and
		// record the derivative at the point it lands on, so history[0]
		// always belongs to the current state.
		if len(a.history) == 0 {
			f0 := make(fmicore.StateVector, len(x))
			if err := evalStage(model, x, t, f0); err != nil {
				return nil, 0, 0, err
			}
			a.history = []fmicore.StateVector{f0}
		}
		xNew, dtUsed, dtNext, err := a.startup.rk4Step(model, x, t, dt)
		if err != nil {
			return nil, 0, 0, err
		}
		f := make(fmicore.StateVector, len(x))
		if err := evalStage(model, xNew, t+dtUsed, f); err != nil {
			return nil, 0, 0, err
		}
		a.history = append([]fmicore.StateVector{f}, a.history...)
		if len(a.history) > abmOrder {
			a.history = a.history[:abmOrder]
		}
		a.dtHistory = dt
		return xNew, dtUsed, dtNext, nil
	}

	n := len(x)
	predicted := make(fmicore.StateVector, n)
	copy(predicted, x)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j, c := range ab5Coeffs {
			sum += c * a.history[j][i]
		}
		predicted[i] += dt * sum
	}

	fPredicted := make(fmicore.StateVector, n)
	if err := evalStage(model, predicted, t+dt, fPredicted); err != nil {
		return nil, 0, 0, err
	}

	corrected := make(fmicore.StateVector, n)
	copy(corrected, x)
	amHistory := append([]fmicore.StateVector{fPredicted}, a.history[:abmOrder-1]...)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j, c := range am4Coeffs {
			sum += c * amHistory[j][i]
		}
		corrected[i] += dt * sum
	}

	fCorrected := make(fmicore.StateVector, n)
	if err := evalStage(model, corrected, t+dt, fCorrected); err != nil {
		return nil, 0, 0, err
	}

	a.history = append([]fmicore.StateVector{fCorrected}, a.history[:abmOrder-1]...)
	return corrected, dt, dt, nil
}

func (a *AdamsMoulton) InvokeMethod(model Model, state fmicore.StateVector, t, span, dtHint float64) (float64, fmicore.EventInfo, error) {
	res, err := runAcceptedSubsteps(model, state, t, span, dtHint, a.nIndicators, a.step, nil)
	if err != nil {
		return t, fmicore.NoEvent(), err
	}
	return res.t, res.info, nil
}

func (a *AdamsMoulton) DoStepConst(model Model, state fmicore.StateVector, t, dt float64) error {
	xNew, _, _, err := a.step(model, state, t, dt)
	if err != nil {
		return err
	}
	copy(state, xNew)
	return commit(model, state, t+dt, make(fmicore.EventIndicators, a.nIndicators))
}

// Reset discards the multistep history, forcing the next InvokeMethod to
// bootstrap with RK4 again. This is what the Integration Engine calls
// after rewinding a DoStepConst it must undo.
func (a *AdamsMoulton) Reset() { a.history = nil }
