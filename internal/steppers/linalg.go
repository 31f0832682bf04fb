package steppers

import "fmigo/internal/fmicore"

// luDecompose factors the n×n matrix a (row-major) in place into L and U
// (Doolittle, no pivoting — adequate for the well-conditioned
// I - h·γ·J systems Rosenbrock solves). It returns an error on a zero
// pivot; there is no permutation, since no pivoting is performed.
func luDecompose(a []float64, n int) error {
	for k := 0; k < n; k++ {
		piv := a[k*n+k]
		if piv == 0 {
			return fmicore.NewError(fmicore.KindModelFailure, "rosenbrock: singular iteration matrix")
		}
		for i := k + 1; i < n; i++ {
			factor := a[i*n+k] / piv
			a[i*n+k] = factor
			for j := k + 1; j < n; j++ {
				a[i*n+j] -= factor * a[k*n+j]
			}
		}
	}
	return nil
}

// luSolve solves (L·U)x = b in place using the factorization produced by
// luDecompose, writing the result into b.
func luSolve(lu []float64, n int, b []float64) {
	for i := 1; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= lu[i*n+j] * b[j]
		}
		b[i] = sum
	}
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i*n+j] * b[j]
		}
		b[i] = sum / lu[i*n+i]
	}
}
