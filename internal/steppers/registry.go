package steppers

import "fmt"

// New constructs the stepper named by tag for a model with the given
// event-indicator count, mirroring the name→constructor registry the
// teacher uses to select physics models and integrators by string tag.
func New(tag Tag, nIndicators int) (Stepper, error) {
	switch tag {
	case TagEuler:
		return NewEuler(nIndicators), nil
	case TagRK4:
		return NewRK4(nIndicators), nil
	case TagCashKarp:
		return NewCashKarp(nIndicators), nil
	case TagDormandPrince:
		return NewDormandPrince(nIndicators), nil
	case TagFehlberg78:
		return NewFehlberg78(nIndicators), nil
	case TagBulirschStoer:
		return NewBulirschStoer(nIndicators), nil
	case TagAdamsMoulton:
		return NewAdamsMoulton(nIndicators), nil
	case TagRosenbrock:
		return NewRosenbrock(nIndicators), nil
	case TagBDF:
		return NewBDF(nIndicators), nil
	case TagAdamsMoultonStf:
		return NewAdamsMoultonStiff(nIndicators), nil
	default:
		return nil, fmt.Errorf("steppers: unknown stepper tag %q", tag)
	}
}

// Tags lists every catalogue entry in the fixed order of spec §4.2.
func Tags() []Tag {
	return []Tag{TagEuler, TagRK4, TagCashKarp, TagDormandPrince, TagFehlberg78, TagBulirschStoer, TagAdamsMoulton, TagRosenbrock, TagBDF, TagAdamsMoultonStf}
}
