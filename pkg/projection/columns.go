package projection

// Column describes one exported field of a YearlyProjection.
type Column struct {
	Header string
	// Currency is false for counts, years, rates and percentages.
	Currency bool
	Percent  bool
	Value    func(YearlyProjection) float64
}

// Columns lists the exported fields in display order. Headers are shared by
// every tabular output so that files stay comparable between runs.
var Columns = []Column{
	{Header: "Year", Value: func(r YearlyProjection) float64 { return float64(r.Year) }},
	{Header: "Homes", Value: func(r YearlyProjection) float64 { return float64(r.Homes) }},
	{Header: "Monthly Dues ($/home)", Currency: true, Value: func(r YearlyProjection) float64 { return r.MonthlyDuesPerHome }},
	{Header: "Annual Dues Revenue ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.DuesRevenue }},
	{Header: "Operating Expenses ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.OperatingExpenses }},
	{Header: "Operating Margin ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.OperatingMargin }},
	{Header: "Reserve Start ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.ReserveStart }},
	{Header: "Reserve Contributions ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.ReserveContributions }},
	{Header: "Special Assessment ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.SpecialAssessment }},
	{Header: "Loan Draw ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.LoanDraw }},
	{Header: "Loan Payments ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.LoanPayment }},
	{Header: "Loan Interest Portion ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.LoanInterest }},
	{Header: "Capital Projects ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.CapitalSpend }},
	{Header: "Reserve Interest Earned ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.ReserveInterest }},
	{Header: "Loan Fee ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.LoanFee }},
	{Header: "Fully Funded Balance ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.FullyFundedBalance }},
	{Header: "Funding %", Percent: true, Value: func(r YearlyProjection) float64 { return r.FundingPercent }},
	{Header: "Reserve Ending ($)", Currency: true, Value: func(r YearlyProjection) float64 { return r.ReserveEnding }},
}

// Headers returns the column headers in display order.
func Headers() []string {
	headers := make([]string, len(Columns))
	for i, column := range Columns {
		headers[i] = column.Header
	}
	return headers
}
