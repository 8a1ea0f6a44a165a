// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
)

// ValidateLoanMaturity checks if a loan is paid off before the horizon ends
func ValidateLoanMaturity(loanName string, startYear, termYears, lastYear int) string {
	if termYears <= 0 {
		return ""
	}
	maturityYear := startYear + termYears - 1
	if maturityYear > lastYear {
		return fmt.Sprintf("%s matures after the horizon (%d > %d) - loan will have outstanding balance",
			loanName, maturityYear, lastYear)
	}
	return ""
}

// ValidateYearInHorizon checks if a dated item falls within the simulated years.
// A zero year means the item defaults to the horizon and is not checked.
func ValidateYearInHorizon(itemName string, year, firstYear, lastYear int) string {
	if year == 0 {
		return ""
	}
	if year < firstYear || year > lastYear {
		return fmt.Sprintf("%s year %d is outside the horizon %d-%d and will be ignored",
			itemName, year, firstYear, lastYear)
	}
	return ""
}

// ConfigValidator performs comprehensive configuration validation
type ConfigValidator struct {
	FirstYear    int
	HorizonYears int
	Projects     []ProjectConfig
	Scenarios    []ScenarioConfig
	// Warnings already found by the caller; ValidateAll appends to them.
	Warnings []string
}

type ProjectConfig struct {
	Name string
	Year int
}

type ScenarioConfig struct {
	Name              string
	Active            bool
	DuesIncreaseYears []int
	AssessmentYear    int
	LoanStartYear     int
	LoanTermYears     int
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	warnings := append([]string(nil), cv.Warnings...)

	firstYear := cv.FirstYear
	lastYear := cv.FirstYear + cv.HorizonYears - 1

	for _, project := range cv.Projects {
		if warning := ValidateYearInHorizon(fmt.Sprintf("Capital project '%s'", project.Name), project.Year, firstYear, lastYear); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	seen := make(map[string]bool, len(cv.Scenarios))
	for _, scenario := range cv.Scenarios {
		if seen[scenario.Name] {
			warnings = append(warnings, fmt.Sprintf("Scenario name '%s' is used more than once", scenario.Name))
		}
		seen[scenario.Name] = true

		if !scenario.Active {
			continue
		}

		for _, year := range scenario.DuesIncreaseYears {
			if year == firstYear {
				warnings = append(warnings, fmt.Sprintf("Scenario '%s' dues increase in the first year %d has no effect",
					scenario.Name, year))
				continue
			}
			if warning := ValidateYearInHorizon(fmt.Sprintf("Scenario '%s' dues increase", scenario.Name), year, firstYear, lastYear); warning != "" {
				warnings = append(warnings, warning)
			}
		}

		if warning := ValidateYearInHorizon(fmt.Sprintf("Scenario '%s' special assessment", scenario.Name), scenario.AssessmentYear, firstYear, lastYear); warning != "" {
			warnings = append(warnings, warning)
		}

		if scenario.LoanStartYear != 0 && scenario.LoanStartYear < firstYear {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' loan starts before the horizon (%d < %d) - the draw is not shown",
				scenario.Name, scenario.LoanStartYear, firstYear))
		}
		if scenario.LoanStartYear > lastYear {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' loan starts after the horizon (%d > %d) and will be ignored",
				scenario.Name, scenario.LoanStartYear, lastYear))
		} else if scenario.LoanStartYear != 0 {
			if warning := ValidateLoanMaturity(fmt.Sprintf("Scenario '%s' loan", scenario.Name), scenario.LoanStartYear, scenario.LoanTermYears, lastYear); warning != "" {
				warnings = append(warnings, warning)
			}
		}
	}

	return warnings
}
