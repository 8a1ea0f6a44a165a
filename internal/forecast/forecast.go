// Package forecast defines the data structures related to a given forecast and
// includes functions for computing the forecasts.
package forecast

import (
	"fmt"

	"github.com/iwvelando/hoa-forecast/internal/config"
	"github.com/iwvelando/hoa-forecast/pkg/loans"
	"github.com/iwvelando/hoa-forecast/pkg/optimization"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
	"go.uber.org/zap"
)

// Forecast holds all information related to a specific forecast.
type Forecast struct {
	Name          string                        `json:"name"`
	Rows          []projection.YearlyProjection `json:"rows"`
	Summary       projection.Summary            `json:"summary"`
	Schedule      loans.Schedule                `json:"loanSchedule,omitempty"`
	Notes         map[int][]string              `json:"notes,omitempty"`
	Optimizations []optimization.Summary        `json:"optimizations,omitempty"`
}

// GetForecast processes the Forecasts for all active Scenarios. Table files
// must already be loaded (see config.Configuration.LoadTables).
func GetForecast(logger *zap.Logger, conf config.Configuration) ([]Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var results []Forecast
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "forecast.GetForecast"),
			)
			continue
		}

		result, err := Scenario(logger, &conf, scenario)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// Scenario projects a single scenario of conf.
func Scenario(logger *zap.Logger, conf *config.Configuration, scenario config.Scenario) (Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := conf.ScenarioConfig(scenario)
	if err != nil {
		return Forecast{}, err
	}

	rows, schedule, err := projection.Run(cfg)
	if err != nil {
		return Forecast{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	result := Forecast{
		Name:     scenario.Name,
		Rows:     rows,
		Summary:  projection.Summarize(rows),
		Schedule: schedule,
		Notes:    notes(cfg, rows, schedule),
	}

	logger.Debug("projected scenario",
		zap.String("op", "forecast.Scenario"),
		zap.String("scenario", scenario.Name),
		zap.Int("years", len(rows)),
		zap.Bool("loan", cfg.HasLoan()),
		zap.Float64("finalReserve", result.Summary.FinalReserveBalance),
		zap.Float64("finalFundingPercent", result.Summary.FinalFundingPercent),
	)

	return result, nil
}

// notes flags the years a board would want called out.
func notes(cfg projection.ScenarioConfig, rows []projection.YearlyProjection, schedule loans.Schedule) map[int][]string {
	out := make(map[int][]string)
	for _, row := range rows {
		if row.LoanDraw > 0 {
			out[row.Year] = append(out[row.Year], fmt.Sprintf("loan of %.2f drawn into reserves", row.LoanDraw))
		}
		if entry, ok := schedule[row.Year]; ok && cfg.HasLoan() && entry.Payment > 0 && entry.EndingBalance == 0 {
			out[row.Year] = append(out[row.Year], "loan paid off")
		}
		if row.SpecialAssessment > 0 {
			out[row.Year] = append(out[row.Year], fmt.Sprintf("special assessment of %.2f collected", row.SpecialAssessment))
		}
		if row.OperatingMargin < 0 {
			out[row.Year] = append(out[row.Year], fmt.Sprintf("operating deficit of %.2f", -row.OperatingMargin))
		}
		if row.ReserveEnding < 0 {
			out[row.Year] = append(out[row.Year], fmt.Sprintf("reserve balance is negative (%.2f)", row.ReserveEnding))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
