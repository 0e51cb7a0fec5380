package ledger

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnLedger/pkg/interest"
	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/mcclellann/pawnLedger/pkg/stats"
	"github.com/mcclellann/pawnLedger/pkg/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	serialPrefix   = "AK"
	serialAttempts = 5
)

// Ledger handles the business logic for pawn records.
type Ledger struct {
	storage store.Storage
	now     func() time.Time

	mu      sync.Mutex
	randSrc rand.Source // serial number suffixes, guarded by mu
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage) *Ledger {
	return &Ledger{
		storage: s,
		randSrc: rand.NewSource(time.Now().UnixNano()),
		now:     time.Now,
	}
}

// PawnInput carries the editable fields of a pawn record.
type PawnInput struct {
	CustomerName     string               `json:"name"`
	PhoneNumber      string               `json:"phoneNumber"`
	Address          string               `json:"address"`
	JewelleryType    models.JewelleryType `json:"jewelleryType"`
	JewelleryWeight  decimal.Decimal      `json:"jewelleryWeight"`
	Principal        decimal.Decimal      `json:"principal"`
	MonthlyRatePct   decimal.Decimal      `json:"monthlyRatePct"`
	PaperLoanRatePct decimal.Decimal      `json:"paperLoanRatePct"`
	PawnDate         models.Date          `json:"pawnDate"`
}

func (in PawnInput) applyTo(rec *models.PawnRecord) {
	rec.CustomerName = strings.TrimSpace(in.CustomerName)
	rec.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	rec.Address = strings.TrimSpace(in.Address)
	rec.JewelleryType = in.JewelleryType
	rec.JewelleryWeight = in.JewelleryWeight
	rec.Principal = in.Principal
	rec.MonthlyRatePct = in.MonthlyRatePct
	rec.PaperLoanRatePct = in.PaperLoanRatePct
	rec.PawnDate = in.PawnDate
}

func (l *Ledger) today() models.Date {
	return models.DateOf(l.now())
}

// generateSerialNumber returns AK + two-digit year + month + four random digits.
func (l *Ledger) generateSerialNumber() string {
	l.mu.Lock()
	suffix := rand.New(l.randSrc).Intn(10000)
	l.mu.Unlock()

	now := l.now()
	return fmt.Sprintf("%s%02d%02d%04d", serialPrefix, now.Year()%100, int(now.Month()), suffix)
}

// insertWithSerial stores rec under a fresh serial number, drawing again when
// the store reports the serial as taken.
func (l *Ledger) insertWithSerial(rec *models.PawnRecord) error {
	for attempt := 0; attempt < serialAttempts; attempt++ {
		rec.SerialNumber = l.generateSerialNumber()
		err := l.storage.CreateRecord(rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateSerial) {
			return fmt.Errorf("failed to store pawn: %w", err)
		}
		log.WithField("serial", rec.SerialNumber).Debug("serial number taken, drawing another")
	}
	return fmt.Errorf("no free serial number after %d attempts", serialAttempts)
}

// CreatePawn validates and stores a newly issued pawn.
func (l *Ledger) CreatePawn(in PawnInput) (*models.PawnRecord, error) {
	now := l.now()
	rec := &models.PawnRecord{
		ID:        uuid.New(),
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(rec)

	if err := validateRecord(rec, l.today()); err != nil {
		return nil, err
	}

	if err := l.insertWithSerial(rec); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"serial":       rec.SerialNumber,
		"principal":    rec.Principal.StringFixed(2),
		"amount_given": interest.AmountGiven(interest.TermsOf(rec)).StringFixed(2),
	}).Info("pawn issued")
	return rec, nil
}

// GetPawn retrieves a pawn by its ID.
func (l *Ledger) GetPawn(id uuid.UUID) (*models.PawnRecord, error) {
	return l.storage.GetRecord(id)
}

// ListPawns returns every pawn, or only those in the given status when it is non-empty.
func (l *Ledger) ListPawns(status models.Status) ([]*models.PawnRecord, error) {
	switch {
	case status == "":
		return l.storage.GetAllRecords()
	case status.Valid():
		return l.storage.GetRecordsByStatus(status)
	default:
		return nil, invalid("unknown status %q", status)
	}
}

// SearchPawns matches serial number, customer name or phone number.
func (l *Ledger) SearchPawns(query string) ([]*models.PawnRecord, error) {
	return l.storage.SearchRecords(strings.TrimSpace(query))
}

// UpdatePawn edits the customer, jewellery and loan fields of a pawn. Lifecycle
// fields (status, redeemed date) and storage location are left untouched.
func (l *Ledger) UpdatePawn(id uuid.UUID, in PawnInput) (*models.PawnRecord, error) {
	rec, err := l.storage.GetRecord(id)
	if err != nil {
		return nil, err
	}

	in.applyTo(rec)
	if err := validateRecord(rec, l.today()); err != nil {
		return nil, err
	}

	rec.UpdatedAt = l.now()
	if err := l.storage.UpdateRecord(rec); err != nil {
		return nil, fmt.Errorf("failed to update pawn: %w", err)
	}
	return rec, nil
}

// DeletePawn deletes a pawn.
func (l *Ledger) DeletePawn(id uuid.UUID) error {
	if err := l.storage.DeleteRecord(id); err != nil {
		return err
	}
	log.WithField("id", id).Info("pawn deleted")
	return nil
}

// RedeemPawn closes an active pawn today and returns the final breakdown,
// whose TotalPayable is the amount to collect from the customer.
func (l *Ledger) RedeemPawn(id uuid.UUID) (*models.PawnRecord, models.InterestResult, error) {
	rec, err := l.storage.GetRecord(id)
	if err != nil {
		return nil, models.InterestResult{}, err
	}
	if rec.Status == models.StatusRedeemed {
		return nil, models.InterestResult{}, fmt.Errorf("pawn %s: %w", rec.SerialNumber, ErrAlreadyRedeemed)
	}

	today := l.today()
	if today.Before(rec.PawnDate) {
		return nil, models.InterestResult{}, invalid("pawn %s is dated %s, after today", rec.SerialNumber, rec.PawnDate)
	}
	now := l.now()
	if err := l.storage.RedeemRecord(id, today, now); err != nil {
		if errors.Is(err, store.ErrNotActive) {
			return nil, models.InterestResult{}, fmt.Errorf("pawn %s: %w", rec.SerialNumber, ErrAlreadyRedeemed)
		}
		return nil, models.InterestResult{}, fmt.Errorf("failed to redeem pawn: %w", err)
	}
	rec.Status = models.StatusRedeemed
	rec.RedeemedDate = &today
	rec.UpdatedAt = now

	result := interest.ForRecord(rec, now)
	log.WithFields(log.Fields{
		"serial":        rec.SerialNumber,
		"days":          result.Days,
		"interest":      result.InterestAmount.StringFixed(2),
		"total_payable": result.TotalPayable.StringFixed(2),
	}).Info("pawn redeemed")
	return rec, result, nil
}

// UpdateStorageLocation records where the pledged item is kept. GRS and Bank
// require a storage serial number; a locker or no location clears it.
func (l *Ledger) UpdateStorageLocation(id uuid.UUID, loc models.StorageLocation, serial string) (*models.PawnRecord, error) {
	serial = strings.TrimSpace(serial)
	if err := validateStorage(loc, serial); err != nil {
		return nil, err
	}

	rec, err := l.storage.GetRecord(id)
	if err != nil {
		return nil, err
	}

	rec.StorageLocation = loc
	rec.StorageSerialNumber = ""
	if loc.RequiresSerial() {
		rec.StorageSerialNumber = serial
	}
	rec.UpdatedAt = l.now()

	if err := l.storage.UpdateRecord(rec); err != nil {
		return nil, fmt.Errorf("failed to update storage location: %w", err)
	}
	return rec, nil
}

// Quote returns a pawn's interest breakdown to its redemption date, or to
// today while it is active.
func (l *Ledger) Quote(id uuid.UUID) (*models.PawnRecord, models.InterestResult, error) {
	rec, err := l.storage.GetRecord(id)
	if err != nil {
		return nil, models.InterestResult{}, err
	}
	return rec, interest.ForRecord(rec, l.now()), nil
}

// Dashboard aggregates the current record set.
func (l *Ledger) Dashboard() (models.DashboardStats, error) {
	records, err := l.storage.GetAllRecords()
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to load pawns for dashboard: %w", err)
	}
	return stats.Compute(records, l.now()), nil
}

// LogDashboard writes the dashboard figures to the log. It runs on the
// periodic report ticker.
func (l *Ledger) LogDashboard() {
	s, err := l.Dashboard()
	if err != nil {
		log.WithError(err).Error("dashboard report failed")
		return
	}
	log.WithFields(log.Fields{
		"entries":          s.TotalEntries,
		"active":           s.TotalActivePawns,
		"redeemed":         s.TotalRedeemedPawns,
		"pawn_amount":      s.TotalPawnAmount.StringFixed(2),
		"upfront_interest": s.TotalUpfrontInterest.StringFixed(2),
		"interest_earned":  s.TotalInterestEarned.StringFixed(2),
	}).Info("dashboard report")
}
