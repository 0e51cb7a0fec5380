// Package stats folds a snapshot of pawn records into dashboard totals.
package stats

import (
	"time"

	"github.com/mcclellann/pawnLedger/pkg/interest"
	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/shopspring/decimal"
)

// Compute aggregates the records. Active records contribute their principal
// and their upfront deduction; redeemed records contribute the interest earned
// over their whole life. now is only consulted for a redeemed record that has
// lost its redemption date.
func Compute(records []*models.PawnRecord, now time.Time) models.DashboardStats {
	s := models.DashboardStats{
		TotalEntries:         len(records),
		TotalPawnAmount:      decimal.Zero,
		TotalUpfrontInterest: decimal.Zero,
		TotalInterestEarned:  decimal.Zero,
	}

	for _, rec := range records {
		switch rec.Status {
		case models.StatusActive:
			s.TotalActivePawns++
			s.TotalPawnAmount = s.TotalPawnAmount.Add(rec.Principal)
			s.TotalUpfrontInterest = s.TotalUpfrontInterest.Add(interest.UpfrontDeduction(interest.TermsOf(rec)))
		case models.StatusRedeemed:
			s.TotalRedeemedPawns++
			s.TotalInterestEarned = s.TotalInterestEarned.Add(interest.ForRecord(rec, now).InterestEarned())
		}
	}

	return s
}
