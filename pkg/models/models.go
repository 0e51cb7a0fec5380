package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusRedeemed Status = "Redeemed"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusRedeemed
}

type JewelleryType string

const (
	JewelleryGoldRing     JewelleryType = "Gold Ring"
	JewelleryGoldChain    JewelleryType = "Gold Chain"
	JewelleryGoldNecklace JewelleryType = "Gold Necklace"
	JewelleryGoldBangle   JewelleryType = "Gold Bangle"
	JewelleryGoldEarrings JewelleryType = "Gold Earrings"
	JewelleryGoldBracelet JewelleryType = "Gold Bracelet"
	JewellerySilverItems  JewelleryType = "Silver Items"
	JewelleryDiamond      JewelleryType = "Diamond Jewellery"
	JewelleryOther        JewelleryType = "Other"
)

// JewelleryTypes lists the accepted pledge categories in display order.
var JewelleryTypes = []JewelleryType{
	JewelleryGoldRing,
	JewelleryGoldChain,
	JewelleryGoldNecklace,
	JewelleryGoldBangle,
	JewelleryGoldEarrings,
	JewelleryGoldBracelet,
	JewellerySilverItems,
	JewelleryDiamond,
	JewelleryOther,
}

// StorageLocation is where a pledged item is physically kept. Empty means unassigned.
type StorageLocation string

const (
	StorageLocker StorageLocation = "Locker"
	StorageGRS    StorageLocation = "GRS"
	StorageBank   StorageLocation = "Bank"
)

// RequiresSerial reports whether items at this location need a storage serial number.
func (l StorageLocation) RequiresSerial() bool {
	return l == StorageGRS || l == StorageBank
}

type PawnRecord struct {
	ID                  uuid.UUID       `json:"id"`
	SerialNumber        string          `json:"serialNumber"`
	CustomerName        string          `json:"name"`
	PhoneNumber         string          `json:"phoneNumber"`
	Address             string          `json:"address"`
	JewelleryType       JewelleryType   `json:"jewelleryType"`
	JewelleryWeight     decimal.Decimal `json:"jewelleryWeight"` // grams
	Principal           decimal.Decimal `json:"principal"`
	MonthlyRatePct      decimal.Decimal `json:"monthlyRatePct"`   // e.g. 2 means 2% per month
	PaperLoanRatePct    decimal.Decimal `json:"paperLoanRatePct"` // one-time surcharge at issuance, 0-1
	PawnDate            Date            `json:"pawnDate"`
	RedeemedDate        *Date           `json:"redeemedDate,omitempty"`
	Status              Status          `json:"status"`
	StorageLocation     StorageLocation `json:"storageLocation,omitempty"`
	StorageSerialNumber string          `json:"storageSerialNumber,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Matches reports whether the record matches a search query: a case-insensitive
// substring of the serial number or customer name, or a substring of the phone number.
func (r *PawnRecord) Matches(query string) bool {
	if query == "" {
		return true
	}
	lower := strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.SerialNumber), lower) ||
		strings.Contains(strings.ToLower(r.CustomerName), lower) ||
		strings.Contains(r.PhoneNumber, query)
}

// InterestResult is the derived interest breakdown for one record. It is never stored.
type InterestResult struct {
	Days             int             `json:"days"`
	TotalMonths      int             `json:"totalMonths"`
	EffectiveMonths  int             `json:"effectiveMonths"`
	OneMonthInterest decimal.Decimal `json:"oneMonthInterest"`
	PaperInterest    decimal.Decimal `json:"paperInterest"`
	UpfrontDeduction decimal.Decimal `json:"upfrontDeduction"`
	AmountGiven      decimal.Decimal `json:"amountGiven"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
	TotalPayable     decimal.Decimal `json:"totalPayable"`
}

// InterestEarned is the interest realised over the loan's whole life:
// the upfront deduction plus the interest billed at redemption.
func (r InterestResult) InterestEarned() decimal.Decimal {
	return r.UpfrontDeduction.Add(r.InterestAmount)
}

// DashboardStats is recomputed from the full record set on every request.
type DashboardStats struct {
	TotalEntries         int             `json:"totalEntries"`
	TotalActivePawns     int             `json:"totalActivePawns"`
	TotalRedeemedPawns   int             `json:"totalRedeemedPawns"`
	TotalPawnAmount      decimal.Decimal `json:"totalPawnAmount"`
	TotalUpfrontInterest decimal.Decimal `json:"totalUpfrontInterest"`
	TotalInterestEarned  decimal.Decimal `json:"totalInterestEarned"`
}
