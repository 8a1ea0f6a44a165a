package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/mathutil"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
)

// defaultStartYear is a variable so tests can pin the clock.
var defaultStartYear = func() int {
	return time.Now().Year()
}

// Scenario is one named set of assumptions layered over the association.
// Pointer fields distinguish "not set" from an explicit zero so that presets
// and defaults only fill what the file leaves out.
type Scenario struct {
	Name               string            `yaml:"name" mapstructure:"name"`
	Active             bool              `yaml:"active" mapstructure:"active"`
	Preset             string            `yaml:"preset,omitempty" mapstructure:"preset"`
	OperatingInflation *float64          `yaml:"operatingInflation,omitempty" mapstructure:"operatingInflation"`
	Dues               Dues              `yaml:"dues,omitempty" mapstructure:"dues"`
	Reserve            Reserve           `yaml:"reserve,omitempty" mapstructure:"reserve"`
	FullyFunded        FullyFunded       `yaml:"fullyFunded,omitempty" mapstructure:"fullyFunded"`
	SpecialAssessment  SpecialAssessment `yaml:"specialAssessment,omitempty" mapstructure:"specialAssessment"`
	Loan               Loan              `yaml:"loan,omitempty" mapstructure:"loan"`
	Optimizer          *OptimizerConfig  `yaml:"optimizer,omitempty" mapstructure:"optimizer"`
}

// Dues configures the monthly dues per home and their increase schedule.
type Dues struct {
	Starting        *float64 `yaml:"starting,omitempty" mapstructure:"starting"`
	IncreasePercent *float64 `yaml:"increasePercent,omitempty" mapstructure:"increasePercent"`
	// IncreaseYears lists the years dues rise. Nil means every simulated year
	// after the first; an empty list means never.
	IncreaseYears []int `yaml:"increaseYears,omitempty" mapstructure:"increaseYears"`
}

// IsZero reports whether nothing is set. An empty IncreaseYears list counts
// as set.
func (d Dues) IsZero() bool {
	return d.Starting == nil && d.IncreasePercent == nil && d.IncreaseYears == nil
}

// MarshalYAML keeps an empty IncreaseYears list as [] so the "never" schedule
// survives a round trip.
func (d Dues) MarshalYAML() (interface{}, error) {
	out := struct {
		Starting        *float64 `yaml:"starting,omitempty"`
		IncreasePercent *float64 `yaml:"increasePercent,omitempty"`
		IncreaseYears   *[]int   `yaml:"increaseYears,omitempty"`
	}{
		Starting:        d.Starting,
		IncreasePercent: d.IncreasePercent,
	}
	if d.IncreaseYears != nil {
		years := d.IncreaseYears
		out.IncreaseYears = &years
	}
	return out, nil
}

// Reserve configures the reserve fund.
type Reserve struct {
	StartBalance      *float64 `yaml:"startBalance,omitempty" mapstructure:"startBalance"`
	EarningsPercent   *float64 `yaml:"earningsPercent,omitempty" mapstructure:"earningsPercent"`
	ContributionMode  string   `yaml:"contributionMode,omitempty" mapstructure:"contributionMode"`
	ContributionValue *float64 `yaml:"contributionValue,omitempty" mapstructure:"contributionValue"`
}

// FullyFunded configures the fully funded balance benchmark.
type FullyFunded struct {
	StartBalance  *float64 `yaml:"startBalance,omitempty" mapstructure:"startBalance"`
	GrowthPercent *float64 `yaml:"growthPercent,omitempty" mapstructure:"growthPercent"`
}

// SpecialAssessment configures a one-time assessment.
type SpecialAssessment struct {
	Year  int     `yaml:"year,omitempty" mapstructure:"year"`
	Mode  string  `yaml:"mode,omitempty" mapstructure:"mode"`
	Value float64 `yaml:"value,omitempty" mapstructure:"value"`
}

// Loan configures the optional reserve loan.
type Loan struct {
	Amount         float64  `yaml:"amount,omitempty" mapstructure:"amount"`
	RatePercent    *float64 `yaml:"ratePercent,omitempty" mapstructure:"ratePercent"`
	TermYears      *int     `yaml:"termYears,omitempty" mapstructure:"termYears"`
	StartYear      int      `yaml:"startYear,omitempty" mapstructure:"startYear"`
	OriginationFee float64  `yaml:"originationFee,omitempty" mapstructure:"originationFee"`
}

// ScenarioConfig resolves a scenario against the association, its preset and
// the defaults, and returns the projection inputs. Tables must already be
// loaded (see LoadTables).
func (conf *Configuration) ScenarioConfig(scenario Scenario) (projection.ScenarioConfig, error) {
	assoc := conf.Association
	if err := assoc.checkHorizon(); err != nil {
		return projection.ScenarioConfig{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	years := assoc.SimulationYears()

	resolved, err := ApplyPreset(scenario, years)
	if err != nil {
		return projection.ScenarioConfig{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	contributionMode, err := ParseContributionMode(resolved.Reserve.ContributionMode)
	if err != nil {
		return projection.ScenarioConfig{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	assessmentMode, err := ParseAssessmentMode(resolved.SpecialAssessment.Mode)
	if err != nil {
		return projection.ScenarioConfig{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	increaseYears := resolved.Dues.IncreaseYears
	if increaseYears == nil && len(years) > 1 {
		increaseYears = append([]int(nil), years[1:]...)
	}

	assessmentYear := resolved.SpecialAssessment.Year
	if assessmentYear == 0 {
		assessmentYear = assoc.StartYear
	}
	loanStart := resolved.Loan.StartYear
	if loanStart == 0 {
		loanStart = assoc.StartYear + 1
	}

	cfg := projection.ScenarioConfig{
		Homes:           assoc.Homes,
		SimulationYears: years,

		OperatingInflationRate: mathutil.PercentToFraction(valueOr(resolved.OperatingInflation, constants.DefaultOperatingInflation)),
		OperatingBudget:        conf.operatingBudget(),

		StartingMonthlyDues: valueOr(resolved.Dues.Starting, constants.DefaultStartingDues),
		DuesIncreaseRate:    mathutil.PercentToFraction(valueOr(resolved.Dues.IncreasePercent, constants.DefaultDuesIncrease)),
		DuesIncreaseYears:   increaseYears,

		ReserveStartBalance:      valueOr(resolved.Reserve.StartBalance, constants.DefaultReserveStart),
		ReserveEarningsRate:      mathutil.PercentToFraction(valueOr(resolved.Reserve.EarningsPercent, constants.DefaultReserveEarnings)),
		ReserveContributionMode:  contributionMode,
		ReserveContributionValue: valueOr(resolved.Reserve.ContributionValue, constants.DefaultReserveContribution),

		FFBStartBalance: valueOr(resolved.FullyFunded.StartBalance, constants.DefaultFFBStart),
		FFBGrowthRate:   mathutil.PercentToFraction(valueOr(resolved.FullyFunded.GrowthPercent, constants.DefaultFFBGrowth)),

		SpecialAssessment: projection.SpecialAssessment{
			Year:  assessmentYear,
			Mode:  assessmentMode,
			Value: resolved.SpecialAssessment.Value,
		},

		LoanAmount:         resolved.Loan.Amount,
		LoanAnnualRate:     mathutil.PercentToFraction(valueOr(resolved.Loan.RatePercent, constants.DefaultLoanRate)),
		LoanTermYears:      valueOrInt(resolved.Loan.TermYears, constants.DefaultLoanTermYears),
		LoanStartYear:      loanStart,
		LoanOriginationFee: resolved.Loan.OriginationFee,

		CapitalProjects: conf.capitalProjects(),
	}

	if err := cfg.Validate(); err != nil {
		return projection.ScenarioConfig{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	return cfg, nil
}

// ParseContributionMode maps a configuration string to a contribution mode.
// The empty string selects the per-home monthly mode.
func ParseContributionMode(s string) (projection.ContributionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", constants.ContributionModePerHomeMonth:
		return projection.PerHomePerMonth, nil
	case constants.ContributionModeFixedAnnual:
		return projection.FixedAnnual, nil
	default:
		return 0, fmt.Errorf("unknown reserve contribution mode %q (expected %s or %s)",
			s, constants.ContributionModePerHomeMonth, constants.ContributionModeFixedAnnual)
	}
}

// ParseAssessmentMode maps a configuration string to an assessment mode. The
// empty string selects the per-home mode.
func ParseAssessmentMode(s string) (projection.AssessmentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", constants.AssessmentModePerHome:
		return projection.PerHome, nil
	case constants.AssessmentModeTotal:
		return projection.Total, nil
	default:
		return 0, fmt.Errorf("unknown special assessment mode %q (expected %s or %s)",
			s, constants.AssessmentModePerHome, constants.AssessmentModeTotal)
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func valueOrInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
