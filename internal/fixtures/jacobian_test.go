package fixtures_test

import (
	"math"
	"testing"

	"fmigo/internal/fixtures"
	"fmigo/internal/fmicore"
	"fmigo/internal/modelhandle"
)

func TestVanDerPolNumericalJacobianMatchesAnalytic(t *testing.T) {
	vdp := fixtures.NewVanDerPol(2.0)
	h := modelhandle.New(vdp, vdp.Description())

	if err := h.EnterInitializationMode(); err != nil {
		t.Fatalf("EnterInitializationMode: %v", err)
	}
	if err := h.ExitInitializationMode(); err != nil {
		t.Fatalf("ExitInitializationMode: %v", err)
	}

	x := fmicore.StateVector{1.3, -0.7}
	if err := h.SetContinuousStates(x); err != nil {
		t.Fatalf("SetContinuousStates: %v", err)
	}

	got := make([]float64, 4)
	if err := h.Jacobian(0, x, got); err != nil {
		t.Fatalf("Jacobian: %v", err)
	}

	if err := h.SetContinuousStates(x); err != nil {
		t.Fatalf("SetContinuousStates (restore): %v", err)
	}
	want := vdp.AnalyticJacobian()

	// got is column-major: got[col*n+row].
	checks := []struct {
		row, col int
		want     float64
	}{
		{0, 0, want[0][0]},
		{1, 0, want[1][0]},
		{0, 1, want[0][1]},
		{1, 1, want[1][1]},
	}
	for _, c := range checks {
		g := got[c.col*2+c.row]
		if math.Abs(g-c.want) > 1e-6 {
			t.Errorf("J[%d][%d] = %v, want %v", c.row, c.col, g, c.want)
		}
	}
}

// TestVanDerPolNumericalJacobianMatchesSpecScenarioAtOrigin checks
// spec.md §8 scenario 3's first literal point: at (x1,x2)=(0,0), the
// numerical Jacobian equals [[0,1],[-1,-3]] within 1e-9 relative
// tolerance. mu is chosen so the fixture's mu*(1-x1^2) term evaluates
// to -3 at x1=0, matching the reference test vector exactly.
func TestVanDerPolNumericalJacobianMatchesSpecScenarioAtOrigin(t *testing.T) {
	vdp := fixtures.NewVanDerPol(-3.0)
	h := modelhandle.New(vdp, vdp.Description())

	if err := h.EnterInitializationMode(); err != nil {
		t.Fatalf("EnterInitializationMode: %v", err)
	}
	if err := h.ExitInitializationMode(); err != nil {
		t.Fatalf("ExitInitializationMode: %v", err)
	}

	x := fmicore.StateVector{0, 0}
	if err := h.SetContinuousStates(x); err != nil {
		t.Fatalf("SetContinuousStates: %v", err)
	}

	got := make([]float64, 4)
	if err := h.Jacobian(0, x, got); err != nil {
		t.Fatalf("Jacobian: %v", err)
	}

	want := [2][2]float64{{0, 1}, {-1, -3}}
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			g := got[col*2+row]
			if math.Abs(g-want[row][col]) > 1e-9*(1+math.Abs(want[row][col])) {
				t.Errorf("J[%d][%d] = %v, want %v", row, col, g, want[row][col])
			}
		}
	}
}

// TestVanDerPolNumericalJacobianMatchesSpecScenarioOffOrigin checks
// spec.md §8 scenario 3's second literal point: at (13.23, 23.14),
// column 1 = [0, -2*x1*x2-1] and column 2 = [1, 1-x1^2], within 1e-7
// relative tolerance. mu=1 makes the fixture's mu*(1-x1^2) term reduce
// to the reference test vector's bare 1-x1^2.
func TestVanDerPolNumericalJacobianMatchesSpecScenarioOffOrigin(t *testing.T) {
	vdp := fixtures.NewVanDerPol(1.0)
	h := modelhandle.New(vdp, vdp.Description())

	if err := h.EnterInitializationMode(); err != nil {
		t.Fatalf("EnterInitializationMode: %v", err)
	}
	if err := h.ExitInitializationMode(); err != nil {
		t.Fatalf("ExitInitializationMode: %v", err)
	}

	x := fmicore.StateVector{13.23, 23.14}
	if err := h.SetContinuousStates(x); err != nil {
		t.Fatalf("SetContinuousStates: %v", err)
	}

	got := make([]float64, 4)
	if err := h.Jacobian(0, x, got); err != nil {
		t.Fatalf("Jacobian: %v", err)
	}

	want := [2][2]float64{
		{0, 1},
		{-2*x[0]*x[1] - 1, 1 - x[0]*x[0]},
	}
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			g := got[col*2+row]
			if math.Abs(g-want[row][col]) > 1e-7*(1+math.Abs(want[row][col])) {
				t.Errorf("J[%d][%d] = %v, want %v", row, col, g, want[row][col])
			}
		}
	}
}

// TestRobertsonAnalyticalJacobianMatchesSpecScenario checks spec.md
// §8 scenario 4's literal point: at (2,3,4), the column-major analytical
// Jacobian equals [-0.04, 0.04, 0; 4e4, -1.8004e8, 1.8e8; 3e4, -3e4, 0]
// within 1e-9 relative tolerance.
func TestRobertsonAnalyticalJacobianMatchesSpecScenario(t *testing.T) {
	r := fixtures.NewRobertson()
	h := modelhandle.New(r, r.Description())

	x := fmicore.StateVector{2, 3, 4}
	if err := h.SetContinuousStates(x); err != nil {
		t.Fatalf("SetContinuousStates: %v", err)
	}

	got := make([]float64, 9)
	if err := h.Jacobian(0, x, got); err != nil {
		t.Fatalf("Jacobian: %v", err)
	}

	want := []float64{-0.04, 0.04, 0, 4e4, -1.8004e8, 1.8e8, 3e4, -3e4, 0}
	for i, w := range want {
		if math.Abs(got[i]-w) > 1e-9*(1+math.Abs(w)) {
			t.Errorf("J[%d] = %v, want %v", i, got[i], w)
		}
	}
}

func TestRobertsonAnalyticalJacobianMatchesDirectionalDerivative(t *testing.T) {
	r := fixtures.NewRobertson()
	h := modelhandle.New(r, r.Description())

	x := fmicore.StateVector{0.9, 1e-5, 0.1}
	if err := h.SetContinuousStates(x); err != nil {
		t.Fatalf("SetContinuousStates: %v", err)
	}

	got := make([]float64, 9)
	if err := h.Jacobian(0, x, got); err != nil {
		t.Fatalf("Jacobian: %v", err)
	}

	y2, y3 := x[1], x[2]
	const k1, k2, k3 = 0.04, 1e4, 3e7
	want := [3][3]float64{
		{-k1, k2 * y3, k2 * y2},
		{k1, -k2*y3 - 2*k3*y2, -k2 * y2},
		{0, 2 * k3 * y2, 0},
	}

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			g := got[col*3+row]
			if math.Abs(g-want[row][col]) > 1e-6*(1+math.Abs(want[row][col])) {
				t.Errorf("J[%d][%d] = %v, want %v", row, col, g, want[row][col])
			}
		}
	}
}
