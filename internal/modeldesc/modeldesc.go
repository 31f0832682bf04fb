// Package modeldesc reads the FMI model-description XML document into a
// typed schema. Parsing uses encoding/xml from the standard library — no
// example repository in the reference pack imports a third-party XML
// library, so this is the one component in the ambient stack that stays
// on stdlib by omission rather than by choice (see DESIGN.md).
package modeldesc

import (
	"encoding/xml"
	"fmt"
	"io"

	"fmigo/internal/fmi"
)

// Causality classifies a variable's role in the model interface.
type Causality string

const (
	CausalityInput     Causality = "input"
	CausalityOutput    Causality = "output"
	CausalityParameter Causality = "parameter"
	CausalityInternal  Causality = "internal"
)

// Variable is one row of the model's variable table.
type Variable struct {
	Name           string          `xml:"name,attr"`
	ValueReference fmi.ValueRef    `xml:"valueReference,attr"`
	Type           fmi.ScalarType  `xml:"-"`
	TypeName       string          `xml:"type,attr"`
	Causality      Causality       `xml:"causality,attr"`
	Variability    string          `xml:"variability,attr"`
	Start          *string         `xml:"start,attr"`
	DerivativeOf   *fmi.ValueRef   `xml:"derivativeOf,attr"`
}

// DefaultExperiment mirrors the optional <DefaultExperiment> element.
// Every field is nil when the document omits it, replacing the source's
// NaN-as-unset convention per spec §9.
type DefaultExperiment struct {
	StartTime *float64
	StopTime  *float64
	Tolerance *float64
	StepSize  *float64
}

// Description is the parsed model-description document.
type Description struct {
	ModelName                     string
	GUID                          string
	NumberOfContinuousStates      int
	NumberOfEventIndicators       int
	ProvidesDirectionalDerivative bool
	DefaultExperiment             DefaultExperiment
	Variables                     []Variable
	// StateReferences and DerivativeReferences are declaration-order
	// paired: StateReferences[i] is the state whose derivative is
	// DerivativeReferences[i].
	StateReferences      []fmi.ValueRef
	DerivativeReferences []fmi.ValueRef
}

// xmlDoc is the wire shape; Description is derived from it after
// decoding so callers never see XML struct tags.
type xmlDoc struct {
	XMLName xml.Name `xml:"fmiModelDescription"`
	ModelName string `xml:"modelName,attr"`
	GUID      string `xml:"guid,attr"`

	ModelStructure struct {
		Derivatives []struct {
			ValueReference fmi.ValueRef `xml:"index,attr"`
			DependsOn      string       `xml:"dependsOn,attr"`
		} `xml:"Derivatives>Unknown"`
	} `xml:"ModelStructure"`

	DefaultExperiment *struct {
		StartTime *float64 `xml:"startTime,attr"`
		StopTime  *float64 `xml:"stopTime,attr"`
		Tolerance *float64 `xml:"tolerance,attr"`
		StepSize  *float64 `xml:"stepSize,attr"`
	} `xml:"DefaultExperiment"`

	ModelVariables struct {
		ScalarVariable []struct {
			Name           string       `xml:"name,attr"`
			ValueReference fmi.ValueRef `xml:"valueReference,attr"`
			Causality      string       `xml:"causality,attr"`
			Variability    string       `xml:"variability,attr"`
			Real           *struct {
				Start        *string       `xml:"start,attr"`
				DerivativeOf *fmi.ValueRef `xml:"derivative,attr"`
			} `xml:"Real"`
			Integer *struct {
				Start *string `xml:"start,attr"`
			} `xml:"Integer"`
			Boolean *struct {
				Start *string `xml:"start,attr"`
			} `xml:"Boolean"`
			String *struct {
				Start *string `xml:"start,attr"`
			} `xml:"String"`
		} `xml:"ScalarVariable"`
	} `xml:"ModelVariables"`

	NumberOfEventIndicators       int  `xml:"numberOfEventIndicators,attr"`
	ProvidesDirectionalDerivative bool `xml:"providesDirectionalDerivative,attr"`
}

// Parse decodes a model-description document from r.
func Parse(r io.Reader) (*Description, error) {
	var doc xmlDoc
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("modeldesc: decode: %w", err)
	}

	desc := &Description{
		ModelName:                     doc.ModelName,
		GUID:                          doc.GUID,
		NumberOfEventIndicators:       doc.NumberOfEventIndicators,
		ProvidesDirectionalDerivative: doc.ProvidesDirectionalDerivative,
	}

	if de := doc.DefaultExperiment; de != nil {
		desc.DefaultExperiment = DefaultExperiment{
			StartTime: de.StartTime,
			StopTime:  de.StopTime,
			Tolerance: de.Tolerance,
			StepSize:  de.StepSize,
		}
	}

	for _, sv := range doc.ModelVariables.ScalarVariable {
		v := Variable{
			Name:           sv.Name,
			ValueReference: sv.ValueReference,
			Causality:      Causality(sv.Causality),
			Variability:    sv.Variability,
		}
		switch {
		case sv.Real != nil:
			v.Type = fmi.Real
			v.TypeName = "Real"
			v.Start = sv.Real.Start
			v.DerivativeOf = sv.Real.DerivativeOf
		case sv.Integer != nil:
			v.Type = fmi.Integer
			v.TypeName = "Integer"
			v.Start = sv.Integer.Start
		case sv.Boolean != nil:
			v.Type = fmi.Boolean
			v.TypeName = "Boolean"
			v.Start = sv.Boolean.Start
		case sv.String != nil:
			v.Type = fmi.String
			v.TypeName = "String"
			v.Start = sv.String.Start
		}
		desc.Variables = append(desc.Variables, v)

		if v.DerivativeOf != nil {
			desc.StateReferences = append(desc.StateReferences, *v.DerivativeOf)
			desc.DerivativeReferences = append(desc.DerivativeReferences, v.ValueReference)
		}
	}
	desc.NumberOfContinuousStates = len(desc.StateReferences)

	return desc, nil
}

// ByName returns the variable with the given name, or false if absent —
// callers surface this as fmicore.Discard per spec §4.1.
func (d *Description) ByName(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}
