package projection

import (
	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/loans"
	"github.com/iwvelando/hoa-forecast/pkg/mathutil"
)

// YearlyProjection holds the projected figures for one simulated year.
type YearlyProjection struct {
	Year                 int     `json:"year"`
	Homes                int     `json:"homes"`
	MonthlyDuesPerHome   float64 `json:"monthlyDuesPerHome"`
	DuesRevenue          float64 `json:"duesRevenue"`
	OperatingExpenses    float64 `json:"operatingExpenses"`
	OperatingMargin      float64 `json:"operatingMargin"`
	ReserveStart         float64 `json:"reserveStart"`
	ReserveContributions float64 `json:"reserveContributions"`
	SpecialAssessment    float64 `json:"specialAssessment"`
	LoanDraw             float64 `json:"loanDraw"`
	LoanPayment          float64 `json:"loanPayment"`
	LoanInterest         float64 `json:"loanInterest"`
	CapitalSpend         float64 `json:"capitalSpend"`
	ReserveInterest      float64 `json:"reserveInterest"`
	LoanFee              float64 `json:"loanFee"`
	FullyFundedBalance   float64 `json:"fullyFundedBalance"`
	FundingPercent       float64 `json:"fundingPercent"`
	ReserveEnding        float64 `json:"reserveEnding"`
}

// accumulator carries the running balances from one year to the next.
type accumulator struct {
	duesRate       float64
	operatingTotal float64
	fullyFunded    float64
	reserve        float64
}

func (a accumulator) advance(cfg ScenarioConfig, year int, increaseYears map[int]struct{}) accumulator {
	next := accumulator{
		duesRate:       a.duesRate,
		operatingTotal: a.operatingTotal * (1 + cfg.OperatingInflationRate),
		fullyFunded:    a.fullyFunded * (1 + cfg.FFBGrowthRate),
		reserve:        a.reserve,
	}
	if _, ok := increaseYears[year]; ok {
		next.duesRate *= 1 + cfg.DuesIncreaseRate
	}
	return next
}

// Project folds the scenario over its simulation years and returns one row per
// year, in year order. Years missing from schedule are treated as having no
// loan activity. The reserve balance is never clamped, so a depleted reserve
// shows up as a negative ending balance.
func Project(cfg ScenarioConfig, schedule loans.Schedule) []YearlyProjection {
	rows := make([]YearlyProjection, 0, len(cfg.SimulationYears))
	if len(cfg.SimulationYears) == 0 {
		return rows
	}

	increaseYears := make(map[int]struct{}, len(cfg.DuesIncreaseYears))
	for _, year := range cfg.DuesIncreaseYears {
		increaseYears[year] = struct{}{}
	}
	capital := cfg.CapitalSpendByYear()
	contribution := cfg.ReserveContribution()

	acc := accumulator{
		duesRate:       cfg.StartingMonthlyDues,
		operatingTotal: cfg.OperatingBaseTotal(),
		fullyFunded:    cfg.FFBStartBalance,
		reserve:        cfg.ReserveStartBalance,
	}

	for i, year := range cfg.SimulationYears {
		if i > 0 {
			acc = acc.advance(cfg, year, increaseYears)
		}

		loan := schedule.Entry(year)
		var loanDraw, loanFee float64
		if year == cfg.LoanStartYear {
			if cfg.HasLoan() {
				loanDraw = cfg.LoanAmount
			}
			if cfg.LoanOriginationFee > 0 {
				loanFee = cfg.LoanOriginationFee
			}
		}

		row := YearlyProjection{
			Year:                 year,
			Homes:                cfg.Homes,
			MonthlyDuesPerHome:   acc.duesRate,
			DuesRevenue:          float64(cfg.Homes) * acc.duesRate * constants.MonthsPerYear,
			OperatingExpenses:    acc.operatingTotal,
			ReserveStart:         acc.reserve,
			ReserveContributions: contribution,
			SpecialAssessment:    cfg.AssessmentReceipt(year),
			LoanDraw:             loanDraw,
			LoanPayment:          loan.Payment,
			LoanInterest:         loan.Interest,
			CapitalSpend:         capital[year],
			ReserveInterest:      acc.reserve * cfg.ReserveEarningsRate,
			LoanFee:              loanFee,
			FullyFundedBalance:   acc.fullyFunded,
		}
		row.OperatingMargin = row.DuesRevenue - row.OperatingExpenses

		inflows := row.ReserveContributions + row.SpecialAssessment + row.LoanDraw + row.ReserveInterest
		outflows := row.CapitalSpend + row.LoanPayment + row.LoanFee
		row.ReserveEnding = row.ReserveStart + inflows - outflows
		row.FundingPercent = mathutil.CalculatePercentage(row.ReserveEnding, row.FullyFundedBalance)
		if row.FullyFundedBalance <= 0 {
			row.FundingPercent = 0
		}

		rows = append(rows, row)
		acc.reserve = row.ReserveEnding
	}

	return rows
}

// Run validates cfg, amortizes its loan and projects it.
func Run(cfg ScenarioConfig) ([]YearlyProjection, loans.Schedule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	schedule := loans.ComputeSchedule(cfg.LoanAmount, cfg.LoanAnnualRate, cfg.LoanTermYears,
		cfg.LoanStartYear, cfg.SimulationYears)
	return Project(cfg, schedule), schedule, nil
}
