// Package interest implements the pawn loan interest rules: one month's interest
// plus the paper loan surcharge is withheld at issuance, and every further
// started 30-day month is billed at redemption.
//
// Everything here is pure. Inputs are assumed valid; callers reject non-positive
// principals, negative rates and inverted dates before calling in.
package interest

import (
	"time"

	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	// GraceDays is the longest loan, in days, that is billed no months at all.
	// TODO: confirm the grace period with the shop owner before using these
	// figures for reconciliation; the rule came without an explanation.
	GraceDays = 2
	// DaysPerMonth is the length of a billing month.
	DaysPerMonth = 30
)

var hundred = decimal.NewFromInt(100)

// Terms are the financial fields of a pawn that drive the calculation.
type Terms struct {
	Principal        decimal.Decimal
	MonthlyRatePct   decimal.Decimal
	PaperLoanRatePct decimal.Decimal // zero value means no surcharge
}

// TermsOf extracts the calculation terms from a record.
func TermsOf(rec *models.PawnRecord) Terms {
	return Terms{
		Principal:        rec.Principal,
		MonthlyRatePct:   rec.MonthlyRatePct,
		PaperLoanRatePct: rec.PaperLoanRatePct,
	}
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Months returns the elapsed calendar days between the two dates, in either
// order, and the number of billing months they span. Loans of GraceDays or
// fewer span zero months; anything longer counts every started month.
func Months(pawnDate, endDate models.Date) (days, totalMonths int) {
	days = pawnDate.DaysUntil(endDate)
	if days < 0 {
		days = -days
	}
	if days > GraceDays {
		totalMonths = (days + DaysPerMonth - 1) / DaysPerMonth
	}
	return days, totalMonths
}

// OneMonthInterest is a single month's interest on the principal.
func OneMonthInterest(t Terms) decimal.Decimal {
	return round2(t.Principal.Mul(t.MonthlyRatePct).Div(hundred))
}

// PaperInterest is the one-time paper loan surcharge.
func PaperInterest(t Terms) decimal.Decimal {
	return round2(t.Principal.Mul(t.PaperLoanRatePct).Div(hundred))
}

// UpfrontDeduction is what is withheld from the customer at issuance. It does
// not depend on dates.
func UpfrontDeduction(t Terms) decimal.Decimal {
	return OneMonthInterest(t).Add(PaperInterest(t))
}

// AmountGiven is the cash handed over at issuance.
func AmountGiven(t Terms) decimal.Decimal {
	return t.Principal.Sub(UpfrontDeduction(t))
}

// Calculate computes the full breakdown for a loan issued on pawnDate and
// evaluated on endDate. Each amount is rounded to cents on its own.
func Calculate(t Terms, pawnDate, endDate models.Date) models.InterestResult {
	days, totalMonths := Months(pawnDate, endDate)

	// The first month was collected upfront.
	effectiveMonths := totalMonths - 1
	if effectiveMonths < 0 {
		effectiveMonths = 0
	}

	oneMonth := OneMonthInterest(t)
	paper := PaperInterest(t)
	upfront := oneMonth.Add(paper)

	interestAmount := round2(t.Principal.Mul(t.MonthlyRatePct).Mul(decimal.NewFromInt(int64(effectiveMonths))).Div(hundred))

	return models.InterestResult{
		Days:             days,
		TotalMonths:      totalMonths,
		EffectiveMonths:  effectiveMonths,
		OneMonthInterest: oneMonth,
		PaperInterest:    paper,
		UpfrontDeduction: upfront,
		AmountGiven:      t.Principal.Sub(upfront),
		InterestAmount:   interestAmount,
		// The upfront deduction was withheld, so it is not payable again.
		TotalPayable: round2(t.Principal.Add(interestAmount)),
	}
}

// CalculateToDate evaluates on redemptionDate when given, otherwise on the
// calendar date of now.
func CalculateToDate(t Terms, pawnDate models.Date, redemptionDate *models.Date, now time.Time) models.InterestResult {
	end := models.DateOf(now)
	if redemptionDate != nil && !redemptionDate.IsZero() {
		end = *redemptionDate
	}
	return Calculate(t, pawnDate, end)
}

// ForRecord computes a record's breakdown to its redemption date, or to now
// while it is still active.
func ForRecord(rec *models.PawnRecord, now time.Time) models.InterestResult {
	return CalculateToDate(TermsOf(rec), rec.PawnDate, rec.RedeemedDate, now)
}

// ForDuration quotes a loan that was pawned the given number of days before now.
func ForDuration(t Terms, days int, now time.Time) models.InterestResult {
	end := models.DateOf(now)
	return Calculate(t, end.AddDays(-days), end)
}
