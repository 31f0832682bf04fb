package driver

import (
	"context"
	"sync"
)

// EnsembleResult carries one member's final time and any error from a
// RunEnsemble call.
type EnsembleResult struct {
	FinalTime float64
	Err       error
}

// RunEnsemble integrates each of drivers to tEnd concurrently. Per
// spec §5, separate Driver instances are independent and may run in
// parallel provided their underlying ModelHandles are re-entrant — a
// single Driver instance is never touched from more than one goroutine
// here. Adapted from the teacher's dynamo.Ensemble, which parallelizes
// independent simulation runs the same way.
func RunEnsemble(ctx context.Context, drivers []*Driver, tEnd, dtHint float64) []EnsembleResult {
	results := make([]EnsembleResult, len(drivers))

	var wg sync.WaitGroup
	for i, d := range drivers {
		wg.Add(1)
		go func(idx int, drv *Driver) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				results[idx] = EnsembleResult{Err: ctx.Err()}
				return
			default:
			}
			t, err := drv.Integrate(tEnd, dtHint)
			results[idx] = EnsembleResult{FinalTime: t, Err: err}
		}(i, d)
	}
	wg.Wait()

	return results
}
