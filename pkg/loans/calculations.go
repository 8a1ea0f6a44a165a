// Package loans provides the amortization calculations for association loans.
package loans

import (
	"math"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
)

// Payment holds the values for a given monthly payment.
type Payment struct {
	Payment            float64
	Principal          float64
	Interest           float64
	RemainingPrincipal float64
}

// YearEntry aggregates the payments that fall within one simulated year.
type YearEntry struct {
	Principal     float64 `json:"principal"`
	Interest      float64 `json:"interest"`
	EndingBalance float64 `json:"endingBalance"`
	Payment       float64 `json:"payment"`
}

// Schedule maps a calendar year to its aggregated loan activity.
type Schedule map[int]YearEntry

// Entry returns the entry for year, or a zero entry when the year is not
// part of the schedule.
func (s Schedule) Entry(year int) YearEntry {
	return s[year]
}

// Totals sums principal, interest and payments across every year in the
// schedule. EndingBalance of the result is left at zero.
func (s Schedule) Totals() YearEntry {
	var total YearEntry
	for _, entry := range s {
		total.Principal += entry.Principal
		total.Interest += entry.Interest
		total.Payment += entry.Payment
	}
	return total
}

// CalculateMonthlyPayment calculates the level monthly payment for a loan
// using the standard amortization formula. annualRate is a fraction, e.g.
// 0.065 for 6.5%.
func CalculateMonthlyPayment(principal, annualRate float64, termMonths int) float64 {
	if principal <= 0 || termMonths <= 0 {
		return 0
	}
	if annualRate == 0 {
		// For zero interest, simply divide the principal by term
		return principal / float64(termMonths)
	}

	periodicRate := annualRate / constants.MonthsPerYear
	power := math.Pow(1+periodicRate, float64(termMonths))
	return principal * periodicRate * power / (power - 1)
}

// CalculateInterestPayment calculates the interest portion of a monthly
// payment on the given balance.
func CalculateInterestPayment(remainingPrincipal, annualRate float64) float64 {
	return remainingPrincipal * annualRate / constants.MonthsPerYear
}

// GenerateMonthlySchedule simulates the full term of a loan month by month and
// returns one Payment per month actually paid. The simulation stops early once
// the balance drops below constants.BalanceEpsilon, so the result may hold
// fewer than termMonths entries but never more.
func GenerateMonthlySchedule(principal, annualRate float64, termMonths int) []Payment {
	if principal <= 0 || termMonths <= 0 {
		return nil
	}

	monthlyPayment := CalculateMonthlyPayment(principal, annualRate, termMonths)
	payments := make([]Payment, 0, termMonths)
	balance := principal

	for month := 0; month < termMonths; month++ {
		interest := CalculateInterestPayment(balance, annualRate)
		principalPortion := math.Max(0, math.Min(monthlyPayment-interest, balance))
		balance -= principalPortion
		if balance < constants.BalanceEpsilon {
			balance = 0
		}

		payments = append(payments, Payment{
			Payment:            principalPortion + interest,
			Principal:          principalPortion,
			Interest:           interest,
			RemainingPrincipal: balance,
		})

		if balance == 0 {
			break
		}
	}

	return payments
}

// ComputeSchedule amortizes a loan over its whole term and reports the
// activity for each of the requested years. Years before startYear or at or
// after startYear+termYears are dormant and map to a zero entry, as does every
// year when principal or termYears is not positive.
func ComputeSchedule(principal, annualRate float64, termYears, startYear int, years []int) Schedule {
	schedule := make(Schedule, len(years))
	for _, year := range years {
		schedule[year] = YearEntry{}
	}
	if principal <= 0 || termYears <= 0 {
		return schedule
	}

	monthlyPayment := CalculateMonthlyPayment(principal, annualRate, termYears*constants.MonthsPerYear)
	active := aggregateYears(GenerateMonthlySchedule(principal, annualRate, termYears*constants.MonthsPerYear),
		monthlyPayment, principal, termYears)

	for _, year := range years {
		offset := year - startYear
		if offset < 0 || offset >= termYears {
			continue
		}
		schedule[year] = active[offset]
	}

	return schedule
}

// aggregateYears folds monthly payments into termYears loan-relative years.
func aggregateYears(payments []Payment, monthlyPayment, principal float64, termYears int) []YearEntry {
	entries := make([]YearEntry, termYears)
	balance := principal

	for i := range entries {
		var entry YearEntry
		for month := 0; month < constants.MonthsPerYear; month++ {
			index := i*constants.MonthsPerYear + month
			if index >= len(payments) {
				break
			}
			entry.Principal += payments[index].Principal
			entry.Interest += payments[index].Interest
			balance = payments[index].RemainingPrincipal
		}
		entry.EndingBalance = balance

		if balance > 0 {
			entry.Payment = monthlyPayment * constants.MonthsPerYear
		} else {
			// Paid off during this year, or already paid off before it began.
			entry.Payment = entry.Principal + entry.Interest
		}
		entries[i] = entry
	}

	return entries
}
