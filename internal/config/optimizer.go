package config

import (
	"fmt"
	"strings"
)

const (
	OptimizerFieldReserveContribution = "reserveContribution"
	OptimizerFieldSpecialAssessment   = "specialAssessment"
	OptimizerFieldStartingDues        = "startingDues"
	OptimizerFieldDuesIncrease        = "duesIncreasePercent"

	OptimizerKindReserveFloor    = "reserve_floor"
	OptimizerKindFundingTarget   = "funding_target"
	OptimizerKindOperatingMargin = "operating_margin"

	defaultToleranceAmount  = 0.01
	defaultTolerancePercent = 0.001
	defaultMaxIterations    = 60
)

// OptimizerConfig asks for the smallest value of one scenario input that keeps
// a projected metric at or above Target in every simulated year.
type OptimizerConfig struct {
	Field         string   `yaml:"field,omitempty" mapstructure:"field"`
	Kind          string   `yaml:"kind,omitempty" mapstructure:"kind"`
	Target        float64  `yaml:"target,omitempty" mapstructure:"target"`
	Min           *float64 `yaml:"min,omitempty" mapstructure:"min"`
	Max           *float64 `yaml:"max,omitempty" mapstructure:"max"`
	Tolerance     float64  `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int      `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalOptimizerField returns the canonical identifier for an optimizer field.
func CanonicalOptimizerField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return OptimizerFieldReserveContribution
	}
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(trimmed)) {
	case "reservecontribution", "contribution":
		return OptimizerFieldReserveContribution
	case "specialassessment", "assessment":
		return OptimizerFieldSpecialAssessment
	case "startingdues", "dues":
		return OptimizerFieldStartingDues
	case "duesincreasepercent", "duesincrease":
		return OptimizerFieldDuesIncrease
	default:
		return trimmed
	}
}

// defaultKind pairs each field with the metric it moves.
func defaultKind(field string) string {
	switch field {
	case OptimizerFieldStartingDues, OptimizerFieldDuesIncrease:
		return OptimizerKindOperatingMargin
	default:
		return OptimizerKindReserveFloor
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (o *OptimizerConfig) Normalize() {
	if o == nil {
		return
	}
	o.Field = CanonicalOptimizerField(o.Field)

	o.Kind = strings.ToLower(strings.TrimSpace(o.Kind))
	if o.Kind == "" {
		o.Kind = defaultKind(o.Field)
	}

	if o.Tolerance <= 0 {
		if o.Field == OptimizerFieldDuesIncrease {
			o.Tolerance = defaultTolerancePercent
		} else {
			o.Tolerance = defaultToleranceAmount
		}
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
}

// Validate returns an error when the optimizer configuration is unsupported.
// Each field may only be paired with a metric that rises as the field rises.
func (o *OptimizerConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("optimizer configuration cannot be nil")
	}

	o.Normalize()

	switch o.Field {
	case OptimizerFieldReserveContribution, OptimizerFieldSpecialAssessment:
		if o.Kind != OptimizerKindReserveFloor && o.Kind != OptimizerKindFundingTarget {
			return fmt.Errorf("optimizer kind %q is not supported for field %s", o.Kind, o.Field)
		}
	case OptimizerFieldStartingDues, OptimizerFieldDuesIncrease:
		if o.Kind != OptimizerKindOperatingMargin {
			return fmt.Errorf("optimizer kind %q is not supported for field %s", o.Kind, o.Field)
		}
	default:
		return fmt.Errorf("optimizer field %q is not supported", o.Field)
	}

	if o.Min == nil {
		return fmt.Errorf("optimizer requires a minimum bound")
	}
	if o.Max == nil {
		return fmt.Errorf("optimizer requires a maximum bound")
	}
	if *o.Min < 0 {
		return fmt.Errorf("optimizer minimum %.2f must not be negative", *o.Min)
	}
	if *o.Min >= *o.Max {
		return fmt.Errorf("optimizer minimum %.2f must be less than maximum %.2f", *o.Min, *o.Max)
	}

	return nil
}
