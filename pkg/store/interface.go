package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnLedger/pkg/models"
)

var (
	// ErrNotFound is returned, possibly wrapped, when no record has the requested id.
	ErrNotFound = errors.New("pawn record not found")
	// ErrDuplicateSerial is returned when another record already holds the serial number.
	ErrDuplicateSerial = errors.New("pawn serial number already in use")
	// ErrNotActive is returned when redeeming a record that is no longer active.
	ErrNotActive = errors.New("pawn record is not active")
)

// Storage defines the persistence operations for pawn records.
// Listing operations return records in creation order.
type Storage interface {
	CreateRecord(rec *models.PawnRecord) error
	GetRecord(id uuid.UUID) (*models.PawnRecord, error)
	UpdateRecord(rec *models.PawnRecord) error
	// RedeemRecord moves an active record to Redeemed in one step. Only one
	// caller can win for a given record; the others get ErrNotActive.
	RedeemRecord(id uuid.UUID, redeemedDate models.Date, updatedAt time.Time) error
	DeleteRecord(id uuid.UUID) error
	GetAllRecords() ([]*models.PawnRecord, error)
	GetRecordsByStatus(status models.Status) ([]*models.PawnRecord, error)
	// SearchRecords matches serial number and customer name case-insensitively
	// and phone number as a plain substring.
	SearchRecords(query string) ([]*models.PawnRecord, error)

	Close() error
}
