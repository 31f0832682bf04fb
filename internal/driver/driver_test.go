package driver_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fmigo/internal/driver"
	"fmigo/internal/fixtures"
	"fmigo/internal/fmi"
	"fmigo/internal/fmicore"
	"fmigo/internal/modeldesc"
	"fmigo/internal/steppers"
)

// zeroStateModel is a minimal fmi.Capability with no continuous states
// and no event indicators, exercising the driver's integrateDegenerate
// path (spec §4.4 step 1) without pulling in a fixture.
type zeroStateModel struct{ t float64 }

func (zeroStateModel) Instantiate(string, string, string, fmi.Callbacks, bool, bool) error {
	return nil
}
func (zeroStateModel) SetupExperiment(bool, float64, float64, bool, float64) error { return nil }
func (zeroStateModel) EnterInitializationMode() error                             { return nil }
func (zeroStateModel) ExitInitializationMode() error                              { return nil }
func (zeroStateModel) SetReal([]fmi.ValueRef, []float64) error                    { return nil }
func (zeroStateModel) GetReal([]fmi.ValueRef, []float64) error                    { return nil }
func (zeroStateModel) SetInteger([]fmi.ValueRef, []int64) error                   { return nil }
func (zeroStateModel) GetInteger([]fmi.ValueRef, []int64) error                   { return nil }
func (zeroStateModel) SetBoolean([]fmi.ValueRef, []bool) error                    { return nil }
func (zeroStateModel) GetBoolean([]fmi.ValueRef, []bool) error                    { return nil }
func (zeroStateModel) SetString([]fmi.ValueRef, []string) error                   { return nil }
func (zeroStateModel) GetString([]fmi.ValueRef, []string) error                   { return nil }
func (m zeroStateModel) SetTime(t float64) error                                  { return nil }
func (m zeroStateModel) GetTime() (float64, error)                                { return m.t, nil }
func (zeroStateModel) SetContinuousStates(fmicore.StateVector) error              { return nil }
func (zeroStateModel) GetContinuousStates(fmicore.StateVector) error              { return nil }
func (zeroStateModel) GetDerivatives(fmicore.StateVector) error                   { return nil }
func (zeroStateModel) GetEventIndicators(fmicore.EventIndicators) error           { return nil }
func (zeroStateModel) EnterEventMode() error                                      { return nil }
func (zeroStateModel) NewDiscreteStates() (fmi.DiscreteStatesInfo, error) {
	return fmi.DiscreteStatesInfo{}, nil
}
func (zeroStateModel) EnterContinuousTimeMode() error { return nil }
func (zeroStateModel) CompletedIntegratorStep(bool) (fmi.StepInfo, error) {
	return fmi.StepInfo{}, nil
}
func (zeroStateModel) ProvidesDirectionalDerivative() bool { return false }
func (zeroStateModel) GetDirectionalDerivative([]fmi.ValueRef, []fmi.ValueRef, []float64, []float64) error {
	return nil
}
func (zeroStateModel) NStates() int          { return 0 }
func (zeroStateModel) NEventIndicators() int { return 0 }
func (zeroStateModel) Terminate() error      { return nil }
func (zeroStateModel) FreeInstance() error   { return nil }

func newZigzagDriver(eps float64) *driver.Driver {
	cap := fixtures.NewZigzag()
	drv, err := driver.Instantiate(cap, cap.Description(), driver.Config{
		Stepper:              steppers.TagEuler,
		StopBeforeEvent:      true,
		EventSearchPrecision: eps,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(drv.Initialize()).To(Succeed())
	return drv
}

func newStiff2Driver() *driver.Driver {
	cap := fixtures.NewStiff2()
	drv, err := driver.Instantiate(cap, cap.Description(), driver.Config{
		Stepper: steppers.TagEuler,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(drv.Initialize()).To(Succeed())
	return drv
}

var _ = Describe("Driver time advancement", func() {
	It("advances monotonically across a sequence of Integrate calls", func() {
		drv := newStiff2Driver()
		last := drv.Time()
		for i := 0; i < 10; i++ {
			t, err := drv.Integrate(last+0.1, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(BeNumerically(">=", last))
			last = t
		}
	})

	It("never runs past the requested tEnd", func() {
		drv := newStiff2Driver()
		t, err := drv.Integrate(1.0, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeNumerically("<=", 1.0+1e-9))
	})
})

var _ = Describe("Zigzag state event handling", func() {
	It("latches a pending state event when x crosses 1 under stop-before-event", func() {
		drv := newZigzagDriver(1e-4)
		Expect(drv.Pending().None()).To(BeTrue())

		var pending fmicore.PendingEvent
		for i := 0; i < 50; i++ {
			_, err := drv.Integrate(drv.Time()+0.1, 0.01)
			Expect(err).NotTo(HaveOccurred())
			pending = drv.Pending()
			if !pending.None() {
				break
			}
		}
		Expect(pending.None()).To(BeFalse())
		Expect(pending.Kind).To(Equal(fmicore.PendingState))
	})

	It("bounds the located event window to at most 3*eps/4", func() {
		const eps = 1e-4
		drv := newZigzagDriver(eps)

		var pending fmicore.PendingEvent
		for i := 0; i < 50 && pending.None(); i++ {
			_, err := drv.Integrate(drv.Time()+0.1, 0.01)
			Expect(err).NotTo(HaveOccurred())
			pending = drv.Pending()
		}
		Expect(pending.None()).To(BeFalse())
		Expect(pending.TUpper - pending.TLower).To(BeNumerically("<=", 0.75*eps))
	})

	It("steps over the latched event and flips k on the next Integrate call", func() {
		drv := newZigzagDriver(1e-4)
		for i := 0; i < 50 && drv.Pending().None(); i++ {
			_, err := drv.Integrate(drv.Time()+0.1, 0.01)
			Expect(err).NotTo(HaveOccurred())
		}
		latched := drv.Pending()
		Expect(latched.None()).To(BeFalse())

		before := drv.State()[0]
		_, err := drv.Integrate(drv.Time()+0.5, 0.01)
		Expect(err).NotTo(HaveOccurred())
		// With k = -1, x falls back through 1 right after the step-over,
		// so a second crossing may be latched; the first one is consumed.
		Expect(drv.Pending()).NotTo(Equal(latched))
		Expect(drv.Time()).To(BeNumerically(">=", latched.TUpper))

		after := drv.State()[0]
		Expect(after).To(BeNumerically("<", before+0.5))
	})
})

var _ = Describe("Rollback", func() {
	It("has no snapshot until SaveCurrentStateForRollback is called", func() {
		drv := newStiff2Driver()
		Expect(drv.HasRollbackState()).To(BeFalse())
	})

	It("restores the saved (t, state) pair and re-integrates forward when tEnd precedes currentTime", func() {
		drv := newStiff2Driver()
		_, err := drv.Integrate(0.5, 0.01)
		Expect(err).NotTo(HaveOccurred())

		Expect(drv.SaveCurrentStateForRollback()).To(Succeed())
		Expect(drv.HasRollbackState()).To(BeTrue())
		savedT, savedState := drv.Time(), drv.State()

		_, err = drv.Integrate(1.0, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(drv.Time()).To(BeNumerically(">", savedT))

		t, err := drv.Integrate(savedT, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeNumerically("~", savedT, 1e-9))
		Expect(drv.State()[0]).To(BeNumerically("~", savedState[0], 1e-9))
	})

	It("rejects integrating to a time before the snapshot", func() {
		drv := newStiff2Driver()
		_, err := drv.Integrate(0.5, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(drv.SaveCurrentStateForRollback()).To(Succeed())

		_, err = drv.Integrate(0.0, 0.01)
		Expect(err).To(HaveOccurred())
	})

	It("rejects integrating backward with no snapshot saved", func() {
		drv := newStiff2Driver()
		_, err := drv.Integrate(0.5, 0.01)
		Expect(err).NotTo(HaveOccurred())

		_, err = drv.Integrate(0.0, 0.01)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a second save before the first snapshot is released", func() {
		drv := newStiff2Driver()
		Expect(drv.SaveCurrentStateForRollback()).To(Succeed())
		err := drv.SaveCurrentStateForRollback()
		Expect(err).To(HaveOccurred())
		Expect(fmicore.AsStatus(err)).To(Equal(fmicore.Discard))

		drv.ReleaseRollbackState()
		Expect(drv.SaveCurrentStateForRollback()).To(Succeed())
	})
})

var _ = Describe("Incremental lookahead", func() {
	It("fills the prediction ring with monotonically increasing times", func() {
		drv := newStiff2Driver()
		entries, err := drv.PredictState(1.0, 0.1, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).NotTo(BeEmpty())

		for i := 1; i < len(entries); i++ {
			Expect(entries[i].T).To(BeNumerically(">", entries[i-1].T))
		}
	})

	It("leaves the driver's own time and state untouched by prediction", func() {
		drv := newStiff2Driver()
		_, err := drv.Integrate(0.3, 0.01)
		Expect(err).NotTo(HaveOccurred())
		beforeT, beforeState := drv.Time(), drv.State()

		_, err = drv.PredictState(1.0, 0.1, 0.01)
		Expect(err).NotTo(HaveOccurred())

		Expect(drv.Time()).To(Equal(beforeT))
		Expect(drv.State()[0]).To(Equal(beforeState[0]))
	})

	It("commits the bracketing entry on UpdateState and drops earlier ring entries", func() {
		drv := newStiff2Driver()
		entries, err := drv.PredictState(1.0, 0.1, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(entries)).To(BeNumerically(">=", 3))

		target := entries[2].T
		Expect(drv.UpdateState(target)).To(Succeed())
		Expect(drv.Time()).To(BeNumerically("<=", target))
		Expect(drv.UpdateState(entries[1].T)).NotTo(Succeed())
	})

	It("commits exactly H_k on UpdateState(H_k.t), per interpolation continuity", func() {
		drv := newStiff2Driver()
		entries, err := drv.PredictState(1.0, 0.1, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(entries)).To(BeNumerically(">=", 3))

		target := entries[2].T
		Expect(drv.UpdateState(target)).To(Succeed())
		Expect(drv.Time()).To(Equal(target))
		Expect(drv.State()[0]).To(Equal(entries[2].State[0]))
	})

	It("linearly interpolates between the bracketing entries for an off-grid target", func() {
		drv := newStiff2Driver()
		entries, err := drv.PredictState(1.0, 0.1, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(entries)).To(BeNumerically(">=", 3))

		lo, hi := entries[1], entries[2]
		target := (lo.T + hi.T) / 2
		frac := (target - lo.T) / (hi.T - lo.T)
		want := lo.State[0] + frac*(hi.State[0]-lo.State[0])

		Expect(drv.UpdateState(target)).To(Succeed())
		Expect(drv.Time()).To(Equal(target))
		Expect(drv.State()[0]).To(BeNumerically("~", want, 1e-12))
	})
})

var _ = Describe("Ensemble execution", func() {
	It("integrates every member independently to tEnd", func() {
		drivers := make([]*driver.Driver, 4)
		for i := range drivers {
			drivers[i] = newStiff2Driver()
		}
		results := driver.RunEnsemble(context.Background(), drivers, 1.0, 0.01)
		Expect(results).To(HaveLen(4))
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.FinalTime).To(BeNumerically("~", 1.0, 1e-6))
		}
	})
})

var _ = Describe("Degenerate zero-state models", func() {
	It("advances time purely via SetTime when NStates is zero", func() {
		zeroCap := zeroStateModel{}
		drv, err := driver.Instantiate(zeroCap, &modeldesc.Description{ModelName: "zero"}, driver.Config{
			Stepper: steppers.TagEuler,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(drv.Initialize()).To(Succeed())

		t, err := drv.Integrate(2.0, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(2.0))
	})
})
