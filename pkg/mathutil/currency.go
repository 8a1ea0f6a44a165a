// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"github.com/iwvelando/hoa-forecast/pkg/constants"
)

// CalculatePercentage calculates what percentage value is of total. A zero
// total yields 0 rather than an undefined ratio.
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// PercentToFraction converts a percentage such as 3.5 into the fraction 0.035.
func PercentToFraction(percentage float64) float64 {
	return percentage / constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}
