package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRecord wraps every rejected business input.
	ErrInvalidRecord = errors.New("invalid pawn record")
	// ErrAlreadyRedeemed is returned when redeeming a pawn twice.
	ErrAlreadyRedeemed = errors.New("pawn already redeemed")
)

// MaxPaperLoanRatePct is the highest one-time paper loan surcharge accepted.
var MaxPaperLoanRatePct = decimal.NewFromInt(1)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

func validJewelleryType(t models.JewelleryType) bool {
	for _, known := range models.JewelleryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// validateRecord enforces the record invariants before anything reaches storage
// or the interest calculator.
func validateRecord(rec *models.PawnRecord, today models.Date) error {
	if strings.TrimSpace(rec.CustomerName) == "" {
		return invalid("customer name is required")
	}
	if strings.TrimSpace(rec.PhoneNumber) == "" {
		return invalid("phone number is required")
	}
	if !validJewelleryType(rec.JewelleryType) {
		return invalid("unknown jewellery type %q", rec.JewelleryType)
	}
	if !rec.JewelleryWeight.IsPositive() {
		return invalid("jewellery weight must be positive")
	}
	if !rec.Principal.IsPositive() {
		return invalid("principal must be positive")
	}
	if rec.MonthlyRatePct.IsNegative() {
		return invalid("monthly rate must not be negative")
	}
	if rec.PaperLoanRatePct.IsNegative() || rec.PaperLoanRatePct.GreaterThan(MaxPaperLoanRatePct) {
		return invalid("paper loan rate must be between 0 and %s", MaxPaperLoanRatePct)
	}
	if rec.PawnDate.IsZero() {
		return invalid("pawn date is required")
	}
	if rec.PawnDate.After(today) {
		return invalid("pawn date %s is in the future", rec.PawnDate)
	}

	switch rec.Status {
	case models.StatusActive:
		if rec.RedeemedDate != nil {
			return invalid("active pawn cannot have a redeemed date")
		}
	case models.StatusRedeemed:
		if rec.RedeemedDate == nil || rec.RedeemedDate.IsZero() {
			return invalid("redeemed pawn needs a redeemed date")
		}
		if rec.RedeemedDate.Before(rec.PawnDate) {
			return invalid("redeemed date %s is before pawn date %s", rec.RedeemedDate, rec.PawnDate)
		}
	default:
		return invalid("unknown status %q", rec.Status)
	}

	return validateStorage(rec.StorageLocation, rec.StorageSerialNumber)
}

func validateStorage(loc models.StorageLocation, serial string) error {
	switch loc {
	case "", models.StorageLocker, models.StorageGRS, models.StorageBank:
	default:
		return invalid("unknown storage location %q", loc)
	}
	if loc.RequiresSerial() && strings.TrimSpace(serial) == "" {
		return invalid("storage serial number is required for %s", loc)
	}
	return nil
}
