package projection

// Summary collects the headline metrics of a projection.
type Summary struct {
	FinalReserveBalance  float64 `json:"finalReserveBalance"`
	FinalFundingPercent  float64 `json:"finalFundingPercent"`
	FinalOperatingMargin float64 `json:"finalOperatingMargin"`
	MaxCapitalSpend      float64 `json:"maxCapitalSpend"`
	MaxCapitalSpendYear  int     `json:"maxCapitalSpendYear"`
	PeakMonthlyDues      float64 `json:"peakMonthlyDues"`
	TotalLoanInterest    float64 `json:"totalLoanInterest"`
	// FirstDeficitYear is the first year the reserve ends below zero, or 0.
	FirstDeficitYear int `json:"firstDeficitYear"`
}

// Summarize derives the headline metrics from projected rows. An empty
// projection yields the zero Summary.
func Summarize(rows []YearlyProjection) Summary {
	var s Summary
	if len(rows) == 0 {
		return s
	}

	final := rows[len(rows)-1]
	s.FinalReserveBalance = final.ReserveEnding
	s.FinalFundingPercent = final.FundingPercent
	s.FinalOperatingMargin = final.OperatingMargin

	for i, row := range rows {
		if i == 0 || row.CapitalSpend > s.MaxCapitalSpend {
			s.MaxCapitalSpend = row.CapitalSpend
			s.MaxCapitalSpendYear = row.Year
		}
		if i == 0 || row.MonthlyDuesPerHome > s.PeakMonthlyDues {
			s.PeakMonthlyDues = row.MonthlyDuesPerHome
		}
		s.TotalLoanInterest += row.LoanInterest
		if s.FirstDeficitYear == 0 && row.ReserveEnding < 0 {
			s.FirstDeficitYear = row.Year
		}
	}

	return s
}
