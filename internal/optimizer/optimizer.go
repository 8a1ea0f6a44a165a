// Package optimizer searches a single scenario input for the smallest value
// that keeps a projected metric at or above a target.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/hoa-forecast/internal/config"
	"github.com/iwvelando/hoa-forecast/internal/forecast"
	"github.com/iwvelando/hoa-forecast/pkg/format"
	"github.com/iwvelando/hoa-forecast/pkg/loans"
	"github.com/iwvelando/hoa-forecast/pkg/mathutil"
	"github.com/iwvelando/hoa-forecast/pkg/optimization"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
	"go.uber.org/zap"
)

type Runner struct {
	logger *zap.Logger
	conf   *config.Configuration
}

type scenarioTarget struct {
	scenarioIndex int
	scenarioName  string
	optimizer     *config.OptimizerConfig
	base          projection.ScenarioConfig
	schedule      loans.Schedule
	original      float64
}

type evaluation struct {
	value    float64
	achieved float64
	target   float64
}

func (e evaluation) feasible() bool {
	return e.achieved >= e.target
}

func (e evaluation) headroom() float64 {
	return e.achieved - e.target
}

// Result summarizes optimizer adjustments keyed by scenario name.
type Result struct {
	Summaries map[string][]optimization.Summary
}

// Empty indicates whether any optimizer adjustments were produced.
func (r Result) Empty() bool {
	return len(r.Summaries) == 0
}

// Apply attaches optimizer summaries to the provided forecast results.
func (r Result) Apply(forecasts []forecast.Forecast) {
	if len(r.Summaries) == 0 {
		return
	}
	for i := range forecasts {
		summaries, ok := r.Summaries[forecasts[i].Name]
		if !ok {
			continue
		}
		forecasts[i].Optimizations = append(forecasts[i].Optimizations, summaries...)
	}
}

// NewRunner constructs a Runner for the provided configuration. Table files
// must already be loaded.
func NewRunner(logger *zap.Logger, conf *config.Configuration) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, conf: conf}, nil
}

// Run executes all optimizer directives and mutates the configuration in place
// so that a following forecast uses the optimized values.
func (r *Runner) Run() (*Result, error) {
	targets, err := r.collectTargets()
	if err != nil {
		return nil, err
	}

	summaries := make(map[string][]optimization.Summary)
	for _, target := range targets {
		summary := r.optimizeScenario(target)
		r.setScenarioField(target, summary.Value)
		summaries[target.scenarioName] = append(summaries[target.scenarioName], summary)

		r.logger.Info("optimizer adjusted scenario field",
			zap.String("op", "optimizer.Run"),
			zap.String("scenario", target.scenarioName),
			zap.String("field", summary.Field),
			zap.String("kind", summary.Kind),
			zap.Float64("original", summary.Original),
			zap.Float64("optimized", summary.Value),
			zap.Float64("target", summary.Target),
			zap.Float64("achieved", summary.Achieved),
			zap.Float64("headroom", summary.Headroom),
			zap.Int("iterations", summary.Iterations),
			zap.Bool("converged", summary.Converged),
		)
	}

	return &Result{Summaries: summaries}, nil
}

func (r *Runner) collectTargets() ([]scenarioTarget, error) {
	var targets []scenarioTarget

	for i := range r.conf.Scenarios {
		scenario := &r.conf.Scenarios[i]
		if !scenario.Active || scenario.Optimizer == nil {
			continue
		}
		if err := scenario.Optimizer.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		base, err := r.conf.ScenarioConfig(*scenario)
		if err != nil {
			return nil, err
		}
		// The optimized fields never touch the loan, so one schedule serves every evaluation.
		schedule := loans.ComputeSchedule(base.LoanAmount, base.LoanAnnualRate, base.LoanTermYears,
			base.LoanStartYear, base.SimulationYears)
		targets = append(targets, scenarioTarget{
			scenarioIndex: i,
			scenarioName:  scenario.Name,
			optimizer:     scenario.Optimizer,
			base:          base,
			schedule:      schedule,
			original:      getField(base, scenario.Optimizer.Field),
		})
	}

	return targets, nil
}

// optimizeScenario bisects between the bounds. Every supported field moves
// its metric in the same direction, so the feasible region is an upper
// interval of the bounds and the lowest feasible value is the answer.
func (r *Runner) optimizeScenario(target scenarioTarget) optimization.Summary {
	cfg := target.optimizer
	minVal, maxVal := *cfg.Min, *cfg.Max

	summary := optimization.Summary{
		Scope:           "scenario",
		TargetName:      target.scenarioName,
		Field:           cfg.Field,
		Kind:            cfg.Kind,
		Original:        target.original,
		OriginalDisplay: formatFieldDisplay(cfg.Field, target.original),
		Target:          cfg.Target,
	}
	finish := func(eval evaluation, iterations int, converged bool) optimization.Summary {
		summary.Value = eval.value
		summary.ValueDisplay = formatFieldDisplay(cfg.Field, eval.value)
		summary.Achieved = eval.achieved
		summary.Headroom = eval.headroom()
		summary.Iterations = iterations
		summary.Converged = converged
		return summary
	}

	lowerEval := r.evaluate(target, minVal)
	if lowerEval.feasible() {
		return finish(lowerEval, 0, true)
	}
	upperEval := r.evaluate(target, maxVal)
	if !upperEval.feasible() {
		summary.Notes = []string{fmt.Sprintf(
			"unable to satisfy %s %s within bounds %s to %s",
			kindLabel(cfg.Kind),
			formatTarget(cfg.Kind, cfg.Target),
			formatFieldDisplay(cfg.Field, minVal),
			formatFieldDisplay(cfg.Field, maxVal),
		)}
		return finish(upperEval, 0, false)
	}

	iterations := 0
	lower, upper := lowerEval, upperEval
	for iterations < cfg.MaxIterations && upper.value-lower.value > cfg.Tolerance {
		mid := r.evaluate(target, lower.value+(upper.value-lower.value)/2)
		iterations++
		if mid.feasible() {
			upper = mid
		} else {
			lower = mid
		}
	}

	return finish(upper, iterations, upper.value-lower.value <= cfg.Tolerance)
}

func (r *Runner) evaluate(target scenarioTarget, value float64) evaluation {
	cfg := target.base
	setField(&cfg, target.optimizer.Field, value)
	rows := projection.Project(cfg, target.schedule)
	return evaluation{
		value:    value,
		achieved: metric(rows, target.optimizer.Kind),
		target:   target.optimizer.Target,
	}
}

// metric returns the worst year's value of the metric named by kind.
func metric(rows []projection.YearlyProjection, kind string) float64 {
	worst := math.Inf(1)
	for _, row := range rows {
		var v float64
		switch kind {
		case config.OptimizerKindFundingTarget:
			v = row.FundingPercent
		case config.OptimizerKindOperatingMargin:
			v = row.OperatingMargin
		default:
			v = row.ReserveEnding
		}
		worst = math.Min(worst, v)
	}
	if math.IsInf(worst, 1) {
		return 0
	}
	return worst
}

func getField(cfg projection.ScenarioConfig, field string) float64 {
	switch field {
	case config.OptimizerFieldSpecialAssessment:
		return cfg.SpecialAssessment.Value
	case config.OptimizerFieldStartingDues:
		return cfg.StartingMonthlyDues
	case config.OptimizerFieldDuesIncrease:
		return cfg.DuesIncreaseRate * 100
	default:
		return cfg.ReserveContributionValue
	}
}

func setField(cfg *projection.ScenarioConfig, field string, value float64) {
	switch field {
	case config.OptimizerFieldSpecialAssessment:
		cfg.SpecialAssessment.Value = value
	case config.OptimizerFieldStartingDues:
		cfg.StartingMonthlyDues = value
	case config.OptimizerFieldDuesIncrease:
		cfg.DuesIncreaseRate = mathutil.PercentToFraction(value)
	default:
		cfg.ReserveContributionValue = value
	}
}

// setScenarioField writes the optimized value back into the configuration.
func (r *Runner) setScenarioField(target scenarioTarget, value float64) {
	scenario := &r.conf.Scenarios[target.scenarioIndex]
	switch target.optimizer.Field {
	case config.OptimizerFieldSpecialAssessment:
		scenario.SpecialAssessment.Value = value
		if scenario.SpecialAssessment.Year == 0 {
			scenario.SpecialAssessment.Year = target.base.SpecialAssessment.Year
		}
	case config.OptimizerFieldStartingDues:
		scenario.Dues.Starting = &value
	case config.OptimizerFieldDuesIncrease:
		scenario.Dues.IncreasePercent = &value
	default:
		scenario.Reserve.ContributionValue = &value
	}
}

func formatFieldDisplay(field string, value float64) string {
	if field == config.OptimizerFieldDuesIncrease {
		return format.Percent(value)
	}
	return format.Currency(value)
}

func formatTarget(kind string, value float64) string {
	if kind == config.OptimizerKindFundingTarget {
		return format.Percent(value)
	}
	return format.Currency(value)
}

func kindLabel(kind string) string {
	switch kind {
	case config.OptimizerKindFundingTarget:
		return "minimum funding percent"
	case config.OptimizerKindOperatingMargin:
		return "minimum operating margin"
	default:
		return "minimum reserve balance"
	}
}
