package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnLedger/pkg/models"
	"github.com/shopspring/decimal"
)

func newTestRecord(serial, name, phone string, principal int64) *models.PawnRecord {
	now := time.Now()
	return &models.PawnRecord{
		ID:               uuid.New(),
		SerialNumber:     serial,
		CustomerName:     name,
		PhoneNumber:      phone,
		Address:          "123, Gandhi Street, Chennai",
		JewelleryType:    models.JewelleryGoldChain,
		JewelleryWeight:  decimal.NewFromFloat(25.5),
		Principal:        decimal.NewFromInt(principal),
		MonthlyRatePct:   decimal.NewFromInt(2),
		PaperLoanRatePct: decimal.NewFromFloat(0.5),
		PawnDate:         models.NewDate(2024, time.December, 15),
		Status:           models.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test_store.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testStorage runs the behaviour every Storage implementation must share.
func testStorage(t *testing.T, s Storage) {
	t.Run("CreateAndGet", func(t *testing.T) {
		rec := newTestRecord("AK25010001", "Rajesh Kumar", "9876543210", 125000)
		if err := s.CreateRecord(rec); err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}

		fetched, err := s.GetRecord(rec.ID)
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if fetched.SerialNumber != rec.SerialNumber || fetched.CustomerName != rec.CustomerName {
			t.Errorf("Expected %s/%s, got %s/%s", rec.SerialNumber, rec.CustomerName, fetched.SerialNumber, fetched.CustomerName)
		}
		if !fetched.Principal.Equal(rec.Principal) {
			t.Errorf("Expected principal %s, got %s", rec.Principal, fetched.Principal)
		}
		if !fetched.PaperLoanRatePct.Equal(rec.PaperLoanRatePct) {
			t.Errorf("Expected paper rate %s, got %s", rec.PaperLoanRatePct, fetched.PaperLoanRatePct)
		}
		if !fetched.JewelleryWeight.Equal(rec.JewelleryWeight) {
			t.Errorf("Expected weight %s, got %s", rec.JewelleryWeight, fetched.JewelleryWeight)
		}
		if !fetched.PawnDate.Equal(rec.PawnDate) {
			t.Errorf("Expected pawn date %s, got %s", rec.PawnDate, fetched.PawnDate)
		}
		if fetched.RedeemedDate != nil {
			t.Errorf("Expected no redeemed date, got %s", fetched.RedeemedDate)
		}
		if fetched.Status != models.StatusActive {
			t.Errorf("Expected status Active, got %s", fetched.Status)
		}
	})

	t.Run("UpdateRedeemed", func(t *testing.T) {
		rec := newTestRecord("AK25010002", "Priya Devi", "9876543211", 150000)
		if err := s.CreateRecord(rec); err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}

		redeemed := models.NewDate(2025, time.January, 20)
		rec.Status = models.StatusRedeemed
		rec.RedeemedDate = &redeemed
		rec.StorageLocation = models.StorageBank
		rec.StorageSerialNumber = "SBI-778"
		if err := s.UpdateRecord(rec); err != nil {
			t.Fatalf("Failed to update record: %v", err)
		}

		fetched, err := s.GetRecord(rec.ID)
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if fetched.Status != models.StatusRedeemed {
			t.Errorf("Expected status Redeemed, got %s", fetched.Status)
		}
		if fetched.RedeemedDate == nil || !fetched.RedeemedDate.Equal(redeemed) {
			t.Errorf("Expected redeemed date %s, got %v", redeemed, fetched.RedeemedDate)
		}
		if fetched.StorageLocation != models.StorageBank || fetched.StorageSerialNumber != "SBI-778" {
			t.Errorf("Expected Bank/SBI-778, got %s/%s", fetched.StorageLocation, fetched.StorageSerialNumber)
		}

		redeemedOnly, err := s.GetRecordsByStatus(models.StatusRedeemed)
		if err != nil {
			t.Fatalf("Failed to list redeemed: %v", err)
		}
		if len(redeemedOnly) != 1 || redeemedOnly[0].ID != rec.ID {
			t.Errorf("Expected only %s to be redeemed, got %d records", rec.ID, len(redeemedOnly))
		}
	})

	t.Run("Search", func(t *testing.T) {
		rec := newTestRecord("AK25010003", "Suresh Babu", "9876543212", 225000)
		if err := s.CreateRecord(rec); err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}

		cases := map[string]int{
			"suresh":   1,
			"ak2501":   3,
			"43212":    1,
			"98765432": 3,
			"50%":      0,
			"nobody":   0,
		}
		for q, want := range cases {
			got, err := s.SearchRecords(q)
			if err != nil {
				t.Fatalf("Search %q failed: %v", q, err)
			}
			if len(got) != want {
				t.Errorf("Search %q: expected %d results, got %d", q, want, len(got))
			}
		}
	})

	t.Run("ListInCreationOrder", func(t *testing.T) {
		all, err := s.GetAllRecords()
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 records, got %d", len(all))
		}
		for i, serial := range []string{"AK25010001", "AK25010002", "AK25010003"} {
			if all[i].SerialNumber != serial {
				t.Errorf("Position %d: expected %s, got %s", i, serial, all[i].SerialNumber)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		all, _ := s.GetAllRecords()
		victim := all[0].ID
		if err := s.DeleteRecord(victim); err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
		if _, err := s.GetRecord(victim); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteRecord(victim); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("DuplicateSerial", func(t *testing.T) {
		first := newTestRecord("AK25040001", "Anitha", "9000000010", 40000)
		if err := s.CreateRecord(first); err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}
		clash := newTestRecord("AK25040001", "Bala", "9000000011", 45000)
		if err := s.CreateRecord(clash); !errors.Is(err, ErrDuplicateSerial) {
			t.Errorf("Expected ErrDuplicateSerial, got %v", err)
		}
		if _, err := s.GetRecord(clash.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected clashing record not to be stored, got %v", err)
		}
	})

	t.Run("RedeemOnce", func(t *testing.T) {
		rec := newTestRecord("AK25040002", "Chitra", "9000000012", 70000)
		if err := s.CreateRecord(rec); err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}
		redeemed := models.NewDate(2025, time.February, 1)
		if err := s.RedeemRecord(rec.ID, redeemed, time.Now()); err != nil {
			t.Fatalf("Failed to redeem record: %v", err)
		}

		fetched, err := s.GetRecord(rec.ID)
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if fetched.Status != models.StatusRedeemed || fetched.RedeemedDate == nil || !fetched.RedeemedDate.Equal(redeemed) {
			t.Errorf("Expected Redeemed on %s, got %s %v", redeemed, fetched.Status, fetched.RedeemedDate)
		}

		if err := s.RedeemRecord(rec.ID, redeemed, time.Now()); !errors.Is(err, ErrNotActive) {
			t.Errorf("Expected ErrNotActive redeeming twice, got %v", err)
		}
		if err := s.RedeemRecord(uuid.New(), redeemed, time.Now()); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentRedeem", func(t *testing.T) {
		rec := newTestRecord("AK25040003", "Durga", "9000000013", 90000)
		if err := s.CreateRecord(rec); err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}

		const workers = 8
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.RedeemRecord(rec.ID, models.NewDate(2025, time.February, 2), time.Now())
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			switch {
			case err == nil:
				succeeded++
			case !errors.Is(err, ErrNotActive):
				t.Errorf("Unexpected redeem error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("Expected exactly one redemption, got %d", succeeded)
		}
	})

	t.Run("MissingRecord", func(t *testing.T) {
		missing := newTestRecord("AK00000000", "Ghost", "0", 1)
		if err := s.UpdateRecord(missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound updating missing record, got %v", err)
		}
		if _, err := s.GetRecord(uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	testStorage(t, newSQLiteTestStore(t))
}

func TestSQLiteStore_ReopenKeepsSchema(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	rec := newTestRecord("AK25020001", "Lakshmi", "9000000001", 50000)
	if err := s.CreateRecord(rec); err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s.Close()

	fetched, err := s.GetRecord(rec.ID)
	if err != nil {
		t.Fatalf("Failed to get record after reopen: %v", err)
	}
	if !fetched.Principal.Equal(rec.Principal) {
		t.Errorf("Expected principal %s, got %s", rec.Principal, fetched.Principal)
	}
}

func TestLikePattern(t *testing.T) {
	cases := map[string]string{
		"ak":     "%ak%",
		"50%":    `%50\%%`,
		"a_b":    `%a\_b%`,
		`back\s`: `%back\\s%`,
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
