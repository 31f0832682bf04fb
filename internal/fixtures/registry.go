package fixtures

import "fmigo/internal/fmi"

// New builds the named fixture model, mirroring the teacher's
// name→constructor selection pattern for physics models.
func New(name string) (fmi.Capability, bool) {
	switch name {
	case "zigzag":
		return NewZigzag(), true
	case "stiff2":
		return NewStiff2(), true
	case "vanderpol":
		return NewVanDerPol(1.0), true
	case "robertson":
		return NewRobertson(), true
	default:
		return nil, false
	}
}

// Names lists every fixture in a fixed order.
func Names() []string {
	return []string{"zigzag", "stiff2", "vanderpol", "robertson"}
}

// Info gives a one-line description of each fixture for menu display.
var Info = map[string]string{
	"zigzag":    "linear state event, sign flip",
	"stiff2":    "single-state derivative probe",
	"vanderpol": "limit-cycle oscillator",
	"robertson": "stiff chemical kinetics",
}
