// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"
	"testing"

	"github.com/iwvelando/hoa-forecast/internal/config"
	"github.com/iwvelando/hoa-forecast/internal/forecast"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the forecast if found, nil otherwise.
func FindScenario(results []forecast.Forecast, name string) *forecast.Forecast {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// RowForYear returns the projection row for year, or nil when the forecast
// does not cover it.
func RowForYear(result *forecast.Forecast, year int) *projection.YearlyProjection {
	if result == nil {
		return nil
	}
	for i := range result.Rows {
		if result.Rows[i].Year == year {
			return &result.Rows[i]
		}
	}
	return nil
}

// AlmostEqual reports whether a and b differ by no more than tolerance.
func AlmostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// LoadConfiguration loads the configuration at path along with its tables and
// fails the test on error.
func LoadConfiguration(tb testing.TB, path string) *config.Configuration {
	tb.Helper()

	conf, err := config.LoadConfiguration(path)
	if err != nil {
		tb.Fatalf("LoadConfiguration(%s) error = %v", path, err)
	}
	if err := conf.LoadTables(); err != nil {
		tb.Fatalf("LoadTables() error = %v", err)
	}
	return conf
}
