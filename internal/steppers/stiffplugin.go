package steppers

import "fmigo/internal/fmicore"

// External stiff-solver plugins (BDF, ABM2) are optional per spec §4.2.
// The core auto-selects a registered plugin if present and otherwise
// falls back to a stub that reports itself unavailable, following the
// same build-tag-free auto-select/fallback shape the teacher uses for
// its compute backends (compare compute.AutoSelectBackend).

var (
	bdfPlugin  StiffPlugin
	abm2Plugin StiffPlugin
)

// RegisterBDFPlugin installs an external BDF implementation, replacing
// the unavailable stub. Called once during process initialization by a
// plugin package's init(), never by the core itself.
func RegisterBDFPlugin(p StiffPlugin) { bdfPlugin = p }

// RegisterAdamsMoultonStiffPlugin installs an external multistep
// ABM (tag "abm2") implementation.
func RegisterAdamsMoultonStiffPlugin(p StiffPlugin) { abm2Plugin = p }

// NewBDF returns the registered BDF plugin, or a stub that reports
// itself unavailable and fails any integration attempt with a Fatal
// error, matching "optional... via an external stiff-solver plugin".
func NewBDF(nIndicators int) StiffPlugin {
	if bdfPlugin != nil {
		return bdfPlugin
	}
	return &unavailablePlugin{tag: TagBDF, name: "BDF (plugin not registered)", nIndicators: nIndicators}
}

// NewAdamsMoultonStiff returns the registered abm2 plugin, or the
// unavailable stub.
func NewAdamsMoultonStiff(nIndicators int) StiffPlugin {
	if abm2Plugin != nil {
		return abm2Plugin
	}
	return &unavailablePlugin{tag: TagAdamsMoultonStf, name: "stiff ABM (plugin not registered)", nIndicators: nIndicators}
}

const maxStiffInternalSteps = 100000

type unavailablePlugin struct {
	tag         Tag
	name        string
	nIndicators int
}

func (u *unavailablePlugin) Props() Props {
	abs, rel := defaultStiffAbstol, defaultStiffReltol
	return Props{Tag: u.tag, Name: u.name, Order: 0, Adaptive: true, Abstol: &abs, Reltol: &rel}
}

func (u *unavailablePlugin) InvokeMethod(Model, fmicore.StateVector, float64, float64, float64) (float64, fmicore.EventInfo, error) {
	return 0, fmicore.EventInfo{}, fmicore.NewError(fmicore.KindFatal, u.name+" is not registered")
}

func (u *unavailablePlugin) DoStepConst(Model, fmicore.StateVector, float64, float64) error {
	return fmicore.NewError(fmicore.KindFatal, u.name+" is not registered")
}

func (u *unavailablePlugin) Reset() {}

func (u *unavailablePlugin) MaxInternalSteps() int { return maxStiffInternalSteps }
