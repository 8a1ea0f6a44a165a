package optimizer

import (
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/hoa-forecast/internal/config"
	"github.com/iwvelando/hoa-forecast/internal/forecast"
	"github.com/iwvelando/hoa-forecast/pkg/optimization"
	"go.uber.org/zap"
)

func floatPtr(v float64) *float64 {
	return &v
}

// roofConfig is a three year association with a single 100,000 project in
// the second year and no interest, so the answers can be worked by hand.
func roofConfig(optimizer *config.OptimizerConfig) *config.Configuration {
	return &config.Configuration{
		Association: config.Association{
			Homes:           10,
			StartYear:       2026,
			HorizonYears:    3,
			OperatingBudget: []config.LineItem{{Category: "Operations", AnnualAmount: 120_000}},
			CapitalProjects: []config.CapitalProject{{Year: 2027, Name: "Roof", Cost: 100_000}},
		},
		Scenarios: []config.Scenario{
			{
				Name:               "Roof",
				Active:             true,
				OperatingInflation: floatPtr(0),
				Dues: config.Dues{
					Starting:        floatPtr(1_000),
					IncreasePercent: floatPtr(0),
				},
				Reserve: config.Reserve{
					StartBalance:     floatPtr(0),
					EarningsPercent:  floatPtr(0),
					ContributionMode: "fixed-annual",
				},
				FullyFunded: config.FullyFunded{
					StartBalance:  floatPtr(100_000),
					GrowthPercent: floatPtr(0),
				},
				Optimizer: optimizer,
			},
		},
	}
}

func runOptimizer(t *testing.T, conf *config.Configuration) optimization.Summary {
	t.Helper()
	runner, err := NewRunner(zap.NewNop(), conf)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	summaries := result.Summaries["Roof"]
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	return summaries[0]
}

func TestRunnerFindsMinimumContributionForReserveFloor(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{
		Field: config.OptimizerFieldReserveContribution,
		Min:   floatPtr(0),
		Max:   floatPtr(200_000),
	})

	summary := runOptimizer(t, conf)

	if !summary.Converged {
		t.Fatalf("expected optimizer to converge: %+v", summary)
	}
	if summary.Value < 50_000 || summary.Value-50_000 > 0.01 {
		t.Errorf("expected contribution just above 50000, got %.4f", summary.Value)
	}
	if summary.Achieved < 0 {
		t.Errorf("expected a feasible reserve floor, got %.4f", summary.Achieved)
	}
	if summary.Iterations == 0 {
		t.Errorf("expected bisection iterations")
	}
	if summary.Original != 75 {
		t.Errorf("expected original contribution 75, got %.2f", summary.Original)
	}

	applied := conf.Scenarios[0].Reserve.ContributionValue
	if applied == nil || *applied != summary.Value {
		t.Errorf("expected configuration to carry the optimized value %.4f, got %v", summary.Value, applied)
	}
}

func TestRunnerFundingTarget(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{
		Field:  config.OptimizerFieldReserveContribution,
		Kind:   config.OptimizerKindFundingTarget,
		Target: 50,
		Min:    floatPtr(0),
		Max:    floatPtr(200_000),
	})

	summary := runOptimizer(t, conf)

	if math.Abs(summary.Value-75_000) > 0.01 {
		t.Errorf("expected contribution near 75000, got %.4f", summary.Value)
	}
	if summary.Achieved < 50 {
		t.Errorf("expected funding at or above 50%%, got %.4f", summary.Achieved)
	}
}

func TestRunnerStartingDuesForOperatingMargin(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{
		Field: config.OptimizerFieldStartingDues,
		Min:   floatPtr(0),
		Max:   floatPtr(5_000),
	})

	summary := runOptimizer(t, conf)

	if summary.Kind != config.OptimizerKindOperatingMargin {
		t.Errorf("expected operating margin kind, got %s", summary.Kind)
	}
	if math.Abs(summary.Value-1_000) > 0.01 {
		t.Errorf("expected dues near 1000, got %.4f", summary.Value)
	}
	if conf.Scenarios[0].Dues.Starting == nil || *conf.Scenarios[0].Dues.Starting != summary.Value {
		t.Errorf("expected configuration to carry the optimized dues")
	}
}

func TestRunnerPrefersMinimumWhenAlreadyFeasible(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{
		Field: config.OptimizerFieldReserveContribution,
		Min:   floatPtr(60_000),
		Max:   floatPtr(200_000),
	})

	summary := runOptimizer(t, conf)

	if summary.Value != 60_000 {
		t.Errorf("expected the minimum bound, got %.2f", summary.Value)
	}
	if summary.Iterations != 0 || !summary.Converged {
		t.Errorf("expected an immediate answer, got %+v", summary)
	}
	if summary.Headroom != 20_000 {
		t.Errorf("expected headroom 20000, got %.2f", summary.Headroom)
	}
}

func TestRunnerHandlesInfeasibleUpperBound(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{
		Field: config.OptimizerFieldReserveContribution,
		Min:   floatPtr(0),
		Max:   floatPtr(10_000),
	})

	summary := runOptimizer(t, conf)

	if summary.Converged {
		t.Errorf("expected optimizer not to converge")
	}
	if summary.Value != 10_000 {
		t.Errorf("expected the maximum bound, got %.2f", summary.Value)
	}
	if len(summary.Notes) != 1 {
		t.Fatalf("expected one note, got %v", summary.Notes)
	}
	expected := "unable to satisfy minimum reserve balance $0.00 within bounds $0.00 to $10,000.00"
	if summary.Notes[0] != expected {
		t.Errorf("expected note %q, got %q", expected, summary.Notes[0])
	}
}

func TestRunnerRejectsInvalidDirective(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{
		Field: config.OptimizerFieldStartingDues,
		Kind:  config.OptimizerKindReserveFloor,
		Min:   floatPtr(0),
		Max:   floatPtr(10),
	})

	runner, err := NewRunner(nil, conf)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	_, err = runner.Run()
	if err == nil || !strings.Contains(err.Error(), "scenario Roof") {
		t.Errorf("expected scenario error, got %v", err)
	}
}

func TestRunnerSkipsInactiveScenarios(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{Min: floatPtr(0), Max: floatPtr(10)})
	conf.Scenarios[0].Active = false

	runner, err := NewRunner(zap.NewNop(), conf)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected no summaries, got %v", result.Summaries)
	}
}

func TestNewRunnerRequiresConfiguration(t *testing.T) {
	if _, err := NewRunner(zap.NewNop(), nil); err == nil {
		t.Errorf("expected error for nil configuration")
	}
}

func TestResultApply(t *testing.T) {
	result := Result{Summaries: map[string][]optimization.Summary{
		"Roof": {{TargetName: "Roof", Value: 1}},
	}}
	forecasts := []forecast.Forecast{{Name: "Roof"}, {Name: "Other"}}

	result.Apply(forecasts)

	if len(forecasts[0].Optimizations) != 1 {
		t.Errorf("expected summary attached to Roof")
	}
	if len(forecasts[1].Optimizations) != 0 {
		t.Errorf("expected no summary attached to Other")
	}
}

func TestOptimizedForecastMatchesSummary(t *testing.T) {
	conf := roofConfig(&config.OptimizerConfig{Min: floatPtr(0), Max: floatPtr(200_000)})

	summary := runOptimizer(t, conf)
	results, err := forecast.GetForecast(zap.NewNop(), *conf)
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}

	worst := math.Inf(1)
	for _, row := range results[0].Rows {
		worst = math.Min(worst, row.ReserveEnding)
	}
	if math.Abs(worst-summary.Achieved) > 1e-6 {
		t.Errorf("expected forecast minimum reserve %.4f to match optimizer %.4f", worst, summary.Achieved)
	}
}
