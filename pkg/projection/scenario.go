// Package projection computes the year-by-year budget projection for a
// homeowners' association scenario.
package projection

import (
	"fmt"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/mathutil"
	"go.uber.org/multierr"
)

// ContributionMode selects how the reserve contribution value is interpreted.
type ContributionMode int

const (
	// PerHomePerMonth treats the contribution value as dollars per home per month.
	PerHomePerMonth ContributionMode = iota
	// FixedAnnual treats the contribution value as a flat annual amount.
	FixedAnnual
)

func (m ContributionMode) String() string {
	switch m {
	case PerHomePerMonth:
		return "per-home-month"
	case FixedAnnual:
		return "fixed-annual"
	default:
		return fmt.Sprintf("ContributionMode(%d)", int(m))
	}
}

// AssessmentMode selects how the special assessment value is interpreted.
type AssessmentMode int

const (
	// PerHome charges the assessment value to every home.
	PerHome AssessmentMode = iota
	// Total collects the assessment value once across the association.
	Total
)

func (m AssessmentMode) String() string {
	switch m {
	case PerHome:
		return "per-home"
	case Total:
		return "total"
	default:
		return fmt.Sprintf("AssessmentMode(%d)", int(m))
	}
}

// LineItem is one category of the baseline operating budget.
type LineItem struct {
	Category     string  `json:"category"`
	AnnualAmount float64 `json:"annualAmount"`
}

// CapitalProject allocates PhasePercent of Cost to Year. Several rows may
// target the same year to phase a project.
type CapitalProject struct {
	Year         int     `json:"year"`
	Name         string  `json:"name"`
	Cost         float64 `json:"cost"`
	PhasePercent float64 `json:"phasePercent"`
}

// Allocation returns the portion of the project cost spent in its year.
func (p CapitalProject) Allocation() float64 {
	return mathutil.ApplyPercentage(p.Cost, p.PhasePercent)
}

// SpecialAssessment is a one-time charge collected in Year. It only applies
// when Value is positive and Year falls within the simulation.
type SpecialAssessment struct {
	Year  int            `json:"year"`
	Mode  AssessmentMode `json:"mode"`
	Value float64        `json:"value"`
}

// ScenarioConfig is the complete, immutable set of inputs for one projection.
// Rates are fractions, e.g. 0.03 for 3%.
type ScenarioConfig struct {
	Homes           int
	SimulationYears []int

	OperatingInflationRate float64
	OperatingBudget        []LineItem

	StartingMonthlyDues float64
	DuesIncreaseRate    float64
	DuesIncreaseYears   []int

	ReserveStartBalance      float64
	ReserveEarningsRate      float64
	ReserveContributionMode  ContributionMode
	ReserveContributionValue float64

	FFBStartBalance float64
	FFBGrowthRate   float64

	SpecialAssessment SpecialAssessment

	LoanAmount         float64
	LoanAnnualRate     float64
	LoanTermYears      int
	LoanStartYear      int
	LoanOriginationFee float64

	CapitalProjects []CapitalProject
}

// OperatingBaseTotal sums the baseline operating budget.
func (c ScenarioConfig) OperatingBaseTotal() float64 {
	total := 0.0
	for _, item := range c.OperatingBudget {
		total += item.AnnualAmount
	}
	return total
}

// HasLoan reports whether the scenario carries an active loan. A zero amount
// or a zero term means no loan.
func (c ScenarioConfig) HasLoan() bool {
	return c.LoanAmount > 0 && c.LoanTermYears > 0
}

// ReserveContribution returns the annual reserve contribution.
func (c ScenarioConfig) ReserveContribution() float64 {
	if c.ReserveContributionMode == FixedAnnual {
		return c.ReserveContributionValue
	}
	return c.ReserveContributionValue * float64(c.Homes) * 12
}

// AssessmentReceipt returns the special assessment collected in year.
func (c ScenarioConfig) AssessmentReceipt(year int) float64 {
	sa := c.SpecialAssessment
	if sa.Value <= 0 || sa.Year != year || !c.InHorizon(year) {
		return 0
	}
	if sa.Mode == Total {
		return sa.Value
	}
	return sa.Value * float64(c.Homes)
}

// InHorizon reports whether year is one of the simulated years.
func (c ScenarioConfig) InHorizon(year int) bool {
	if len(c.SimulationYears) == 0 {
		return false
	}
	return year >= c.SimulationYears[0] && year <= c.SimulationYears[len(c.SimulationYears)-1]
}

// CapitalSpendByYear allocates every capital project to its target year.
// Rows targeting a year outside the simulation are dropped.
func (c ScenarioConfig) CapitalSpendByYear() map[int]float64 {
	spend := make(map[int]float64, len(c.SimulationYears))
	for _, project := range c.CapitalProjects {
		if !c.InHorizon(project.Year) {
			continue
		}
		spend[project.Year] += project.Allocation()
	}
	return spend
}

// Validate checks the invariants the projection relies on and reports every
// violation found. Years outside the horizon are not errors.
func (c ScenarioConfig) Validate() error {
	var err error

	if c.Homes <= 0 {
		err = multierr.Append(err, fmt.Errorf("homes must be positive, got %d", c.Homes))
	}
	if len(c.SimulationYears) == 0 {
		err = multierr.Append(err, fmt.Errorf("simulation years must not be empty"))
	}
	if len(c.SimulationYears) > constants.MaxHorizonYears {
		err = multierr.Append(err, fmt.Errorf("simulation spans %d years, at most %d are supported",
			len(c.SimulationYears), constants.MaxHorizonYears))
	}
	for i := 1; i < len(c.SimulationYears); i++ {
		if c.SimulationYears[i] != c.SimulationYears[i-1]+1 {
			err = multierr.Append(err, fmt.Errorf("simulation years must be consecutive, found %d after %d",
				c.SimulationYears[i], c.SimulationYears[i-1]))
			break
		}
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"operating inflation rate", c.OperatingInflationRate},
		{"dues increase rate", c.DuesIncreaseRate},
		{"reserve earnings rate", c.ReserveEarningsRate},
		{"fully funded balance growth rate", c.FFBGrowthRate},
		{"loan rate", c.LoanAnnualRate},
		{"starting monthly dues", c.StartingMonthlyDues},
		{"reserve start balance", c.ReserveStartBalance},
		{"fully funded start balance", c.FFBStartBalance},
		{"reserve contribution", c.ReserveContributionValue},
		{"special assessment", c.SpecialAssessment.Value},
		{"loan amount", c.LoanAmount},
		{"loan origination fee", c.LoanOriginationFee},
	}
	for _, field := range nonNegative {
		if field.value < 0 {
			err = multierr.Append(err, fmt.Errorf("%s must not be negative, got %g", field.name, field.value))
		}
	}
	if c.LoanTermYears < 0 {
		err = multierr.Append(err, fmt.Errorf("loan term must not be negative, got %d", c.LoanTermYears))
	}
	if c.LoanTermYears > constants.MaxLoanTermYears {
		err = multierr.Append(err, fmt.Errorf("loan term must be at most %d years, got %d",
			constants.MaxLoanTermYears, c.LoanTermYears))
	}

	for _, item := range c.OperatingBudget {
		if item.AnnualAmount < 0 {
			err = multierr.Append(err, fmt.Errorf("operating budget item %q must not be negative, got %g",
				item.Category, item.AnnualAmount))
		}
	}
	for _, project := range c.CapitalProjects {
		if project.Cost < 0 {
			err = multierr.Append(err, fmt.Errorf("capital project %q cost must not be negative, got %g",
				project.Name, project.Cost))
		}
		if project.PhasePercent < 0 || project.PhasePercent > 100 {
			err = multierr.Append(err, fmt.Errorf("capital project %q phase percent must be within [0, 100], got %g",
				project.Name, project.PhasePercent))
		}
	}

	return err
}

// Years builds a horizon of count consecutive years beginning at start.
func Years(start, count int) []int {
	if count <= 0 {
		return nil
	}
	years := make([]int, count)
	for i := range years {
		years[i] = start + i
	}
	return years
}
