package modeldesc

import (
	"strings"
	"testing"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<fmiModelDescription modelName="zigzag" guid="{abc-123}" numberOfEventIndicators="1" providesDirectionalDerivative="false">
  <DefaultExperiment startTime="0" stopTime="5" tolerance="0.0001"/>
  <ModelVariables>
    <ScalarVariable name="x" valueReference="0" causality="local" variability="continuous">
      <Real start="0"/>
    </ScalarVariable>
    <ScalarVariable name="der(x)" valueReference="1" causality="local" variability="continuous">
      <Real derivative="0"/>
    </ScalarVariable>
    <ScalarVariable name="k" valueReference="2" causality="parameter" variability="tunable">
      <Real start="1"/>
    </ScalarVariable>
  </ModelVariables>
</fmiModelDescription>`

func TestParseReadsModelMetadata(t *testing.T) {
	desc, err := Parse(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if desc.ModelName != "zigzag" {
		t.Errorf("ModelName = %q, want zigzag", desc.ModelName)
	}
	if desc.NumberOfEventIndicators != 1 {
		t.Errorf("NumberOfEventIndicators = %d, want 1", desc.NumberOfEventIndicators)
	}
	if desc.DefaultExperiment.Tolerance == nil || *desc.DefaultExperiment.Tolerance != 0.0001 {
		t.Errorf("Tolerance = %v, want 0.0001", desc.DefaultExperiment.Tolerance)
	}
}

func TestParseDerivesContinuousStateCount(t *testing.T) {
	desc, err := Parse(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if desc.NumberOfContinuousStates != 1 {
		t.Errorf("NumberOfContinuousStates = %d, want 1", desc.NumberOfContinuousStates)
	}
	if len(desc.StateReferences) != 1 || desc.StateReferences[0] != 0 {
		t.Errorf("StateReferences = %v, want [0]", desc.StateReferences)
	}
	if len(desc.DerivativeReferences) != 1 || desc.DerivativeReferences[0] != 1 {
		t.Errorf("DerivativeReferences = %v, want [1]", desc.DerivativeReferences)
	}
}

func TestByName(t *testing.T) {
	desc, err := Parse(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, ok := desc.ByName("k")
	if !ok {
		t.Fatal("expected variable k to be found")
	}
	if v.Causality != CausalityParameter {
		t.Errorf("Causality = %q, want parameter", v.Causality)
	}

	if _, ok := desc.ByName("nonexistent"); ok {
		t.Error("expected nonexistent variable lookup to fail")
	}
}
