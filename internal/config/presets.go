package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
)

// Preset is a named bundle of assumptions a scenario can start from.
type Preset struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	apply       func(s *Scenario, years []int)
}

var presets = []Preset{
	{
		Name:        constants.PresetBase,
		Description: "Default assumptions with no adjustments",
		apply:       func(*Scenario, []int) {},
	},
	{
		Name:        constants.PresetCatchUp,
		Description: "Dues +8% every year and a $2,000,000 loan at 6.5% over 10 years from the first year",
		apply: func(s *Scenario, years []int) {
			if s.Dues.IncreasePercent == nil {
				s.Dues.IncreasePercent = floatPtr(8)
			}
			if s.Dues.IncreaseYears == nil {
				s.Dues.IncreaseYears = append([]int(nil), years...)
			}
			if s.Loan.Amount == 0 {
				s.Loan.Amount = 2_000_000
			}
			if s.Loan.RatePercent == nil {
				s.Loan.RatePercent = floatPtr(6.5)
			}
			if s.Loan.TermYears == nil {
				s.Loan.TermYears = intPtr(10)
			}
			if s.Loan.StartYear == 0 && len(years) > 0 {
				s.Loan.StartYear = years[0]
			}
		},
	},
	{
		Name:        constants.PresetHighInflation,
		Description: "Operating costs inflate at 6% per year",
		apply: func(s *Scenario, _ []int) {
			if s.OperatingInflation == nil {
				s.OperatingInflation = floatPtr(6)
			}
		},
	},
	{
		Name:        constants.PresetAggressiveReserves,
		Description: "Reserve contributions of $125 per home per month",
		apply: func(s *Scenario, _ []int) {
			if s.Reserve.ContributionMode == "" {
				s.Reserve.ContributionMode = constants.ContributionModePerHomeMonth
			}
			if s.Reserve.ContributionValue == nil {
				s.Reserve.ContributionValue = floatPtr(125)
			}
		},
	},
}

// Presets lists the built-in presets in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// ApplyPreset fills the fields of scenario left unset by the configuration
// from its preset. Values written in the configuration always win. The
// scenario passed in is not modified.
func ApplyPreset(scenario Scenario, years []int) (Scenario, error) {
	name := strings.ToLower(strings.TrimSpace(scenario.Preset))
	if name == "" {
		return scenario, nil
	}

	// Copy the slice so the preset never writes through to the caller.
	if scenario.Dues.IncreaseYears != nil {
		scenario.Dues.IncreaseYears = append([]int{}, scenario.Dues.IncreaseYears...)
	}

	for _, preset := range presets {
		if preset.Name == name {
			preset.apply(&scenario, years)
			return scenario, nil
		}
	}
	return scenario, fmt.Errorf("unknown preset %q", scenario.Preset)
}
