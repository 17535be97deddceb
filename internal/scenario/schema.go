package scenario

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// fileSchema is the top-level structure of one scenario file. A
// scenario may be split across several files; blocks are aggregated
// and the time block must appear exactly once overall.
type fileSchema struct {
	Time       *TimeBlock        `hcl:"time,block"`
	Fields     []*FieldBlock     `hcl:"field,block"`
	Evaluators []*EvaluatorBlock `hcl:"evaluator,block"`
	Initials   []*InitialBlock   `hcl:"initial,block"`
	Observed   []string          `hcl:"observed,optional"`
}

// TimeBlock declares the simulated period and the cycle step, all in
// seconds.
type TimeBlock struct {
	Start float64 `hcl:"start"`
	Stop  float64 `hcl:"stop"`
	Step  float64 `hcl:"step"`
}

// FieldBlock declares a registry field beyond what evaluators imply:
// extra tags and IO flags. Scenario fields are scalar.
type FieldBlock struct {
	Name       string   `hcl:"name,label"`
	Tags       []string `hcl:"tags,optional"`
	Vis        *bool    `hcl:"vis,optional"`
	Checkpoint *bool    `hcl:"checkpoint,optional"`
}

// EvaluatorBlock binds an evaluator to a field. The kind selects the
// factory; the remaining attributes parameterize it and unknown
// combinations are rejected by the factory, not the schema.
type EvaluatorBlock struct {
	Name           string         `hcl:"name,label"`
	Kind           string         `hcl:"kind"`
	Tag            string         `hcl:"tag,optional"`
	Dependencies   []string       `hcl:"dependencies,optional"`
	Coefficients   []float64      `hcl:"coefficients,optional"`
	Shift          float64        `hcl:"shift,optional"`
	Coefficient    float64        `hcl:"coefficient,optional"`
	Reciprocal     []string       `hcl:"reciprocal,optional"`
	ConstantInTime bool           `hcl:"constant_in_time,optional"`
	Function       *FunctionBlock `hcl:"function,block"`
}

// FunctionBlock selects a time-function form by label and leaves the
// form-specific attributes to be decoded against that form's schema.
type FunctionBlock struct {
	Form string   `hcl:"form,label"`
	Body hcl.Body `hcl:",remain"`
}

// InitialBlock assigns a field's starting value before the first
// cycle.
type InitialBlock struct {
	Field string    `hcl:"name,label"`
	Tag   string    `hcl:"tag,optional"`
	Value cty.Value `hcl:"value"`
}
