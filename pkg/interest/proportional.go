package interest

import (
	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/shopspring/decimal"
)

// ProportionalResult is the output of the first-generation interest model.
type ProportionalResult struct {
	Days           int             `json:"days"`
	Months         decimal.Decimal `json:"months"` // fractional, days/30
	InterestAmount decimal.Decimal `json:"interestAmount"`
	TotalPayable   decimal.Decimal `json:"totalPayable"`
}

// Proportional charges interest pro rata on fractional months with nothing
// withheld at issuance.
//
// Deprecated: superseded by Calculate. Kept only to re-check figures on
// records that were settled under the old rule.
func Proportional(t Terms, pawnDate, endDate models.Date) ProportionalResult {
	days := pawnDate.DaysUntil(endDate)
	if days < 0 {
		days = -days
	}
	months := decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(DaysPerMonth))
	interestAmount := round2(t.Principal.Mul(t.MonthlyRatePct).Mul(months).Div(hundred))
	return ProportionalResult{
		Days:           days,
		Months:         months,
		InterestAmount: interestAmount,
		TotalPayable:   round2(t.Principal.Add(interestAmount)),
	}
}
