package scenario

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/karst-sim/karst/internal/function"
)

// buildFunction decodes a function block against the schema of its
// form and constructs the time function.
func buildFunction(block *FunctionBlock) (function.Func, error) {
	switch block.Form {
	case "constant":
		var cfg struct {
			Value float64 `hcl:"value"`
		}
		if diags := gohcl.DecodeBody(block.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding constant function: %w", diags)
		}
		return function.Constant(cfg.Value), nil

	case "linear":
		var cfg struct {
			Intercept float64 `hcl:"intercept"`
			Slope     float64 `hcl:"slope"`
			Reference float64 `hcl:"reference,optional"`
		}
		if diags := gohcl.DecodeBody(block.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding linear function: %w", diags)
		}
		return function.Linear(cfg.Intercept, cfg.Slope, cfg.Reference), nil

	case "sinusoid":
		var cfg struct {
			Mean      float64 `hcl:"mean,optional"`
			Amplitude float64 `hcl:"amplitude"`
			Period    float64 `hcl:"period"`
			Shift     float64 `hcl:"shift,optional"`
		}
		if diags := gohcl.DecodeBody(block.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding sinusoid function: %w", diags)
		}
		return function.Sinusoid(cfg.Mean, cfg.Amplitude, cfg.Period, cfg.Shift)

	case "polynomial":
		var cfg struct {
			Coefficients []float64 `hcl:"coefficients"`
			Exponents    []int     `hcl:"exponents"`
			Reference    float64   `hcl:"reference,optional"`
		}
		if diags := gohcl.DecodeBody(block.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding polynomial function: %w", diags)
		}
		return function.Polynomial(cfg.Coefficients, cfg.Exponents, cfg.Reference)

	case "tabular":
		var cfg struct {
			Times  []float64 `hcl:"times"`
			Values []float64 `hcl:"values"`
		}
		if diags := gohcl.DecodeBody(block.Body, nil, &cfg); diags.HasErrors() {
			return nil, fmt.Errorf("decoding tabular function: %w", diags)
		}
		return function.Tabular(cfg.Times, cfg.Values)

	default:
		return nil, fmt.Errorf("unknown function form %q (have constant, linear, sinusoid, polynomial, tabular)", block.Form)
	}
}
