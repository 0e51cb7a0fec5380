package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/mcclellann/pawnLedger/pkg/models"
	log "github.com/sirupsen/logrus"
)

const recordColumns = `id, serial_number, customer_name, phone_number, address, jewellery_type, jewellery_weight, principal, monthly_rate_pct, paper_loan_rate_pct, pawn_date, redeemed_date, status, storage_location, storage_serial_number, created_at, updated_at`

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	// One connection serialises writers and keeps the pragmas below in effect.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.WithField("dsn", dataSourceName).Info("database connection established and schema initialized")
	return s, nil
}

// initSchema creates the pawns table and adds columns introduced after the first release.
// Amounts and rates are TEXT so no precision is lost; dates are YYYY-MM-DD TEXT.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS pawns (
		id TEXT PRIMARY KEY,
		serial_number TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		jewellery_type TEXT NOT NULL,
		jewellery_weight TEXT NOT NULL,
		principal TEXT NOT NULL,
		monthly_rate_pct TEXT NOT NULL,
		pawn_date TEXT NOT NULL,
		redeemed_date TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pawns_status ON pawns(status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pawns_serial ON pawns(serial_number);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	columns := []string{
		"paper_loan_rate_pct TEXT NOT NULL DEFAULT '0'",
		"storage_location TEXT NOT NULL DEFAULT ''",
		"storage_serial_number TEXT NOT NULL DEFAULT ''",
	}
	for _, col := range columns {
		_, err := s.db.Exec(fmt.Sprintf("ALTER TABLE pawns ADD COLUMN %s", col))
		if err != nil && !isDuplicateColumnError(err) {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "duplicate column name")
}

// nullableDate maps an absent date to SQL NULL.
func nullableDate(d *models.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

// CreateRecord inserts a new pawn record.
func (s *SQLiteStore) CreateRecord(rec *models.PawnRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO pawns (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.SerialNumber, rec.CustomerName, rec.PhoneNumber, rec.Address, string(rec.JewelleryType),
		rec.JewelleryWeight, rec.Principal, rec.MonthlyRatePct, rec.PaperLoanRatePct,
		rec.PawnDate, nullableDate(rec.RedeemedDate), string(rec.Status), string(rec.StorageLocation), rec.StorageSerialNumber,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("serial %s: %w", rec.SerialNumber, ErrDuplicateSerial)
	}
	if err != nil {
		return fmt.Errorf("failed to create pawn record: %w", err)
	}
	return nil
}

// isUniqueConstraintError matches violations of idx_pawns_serial; a clashing
// primary key reports ErrConstraintPrimaryKey instead.
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// GetRecord retrieves a pawn record by its ID.
func (s *SQLiteStore) GetRecord(id uuid.UUID) (*models.PawnRecord, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM pawns WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pawn %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pawn record: %w", err)
	}
	return rec, nil
}

// UpdateRecord overwrites every stored field of an existing record.
func (s *SQLiteStore) UpdateRecord(rec *models.PawnRecord) error {
	result, err := s.db.Exec(
		`UPDATE pawns SET serial_number = ?, customer_name = ?, phone_number = ?, address = ?, jewellery_type = ?, jewellery_weight = ?,
		principal = ?, monthly_rate_pct = ?, paper_loan_rate_pct = ?, pawn_date = ?, redeemed_date = ?, status = ?,
		storage_location = ?, storage_serial_number = ?, updated_at = ? WHERE id = ?`,
		rec.SerialNumber, rec.CustomerName, rec.PhoneNumber, rec.Address, string(rec.JewelleryType), rec.JewelleryWeight,
		rec.Principal, rec.MonthlyRatePct, rec.PaperLoanRatePct, rec.PawnDate, nullableDate(rec.RedeemedDate), string(rec.Status),
		string(rec.StorageLocation), rec.StorageSerialNumber, rec.UpdatedAt, rec.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update pawn record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pawn %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// RedeemRecord flips an active record to Redeemed. The status guard in the
// WHERE clause makes concurrent redemptions of the same pawn update at most once.
func (s *SQLiteStore) RedeemRecord(id uuid.UUID, redeemedDate models.Date, updatedAt time.Time) error {
	result, err := s.db.Exec(
		`UPDATE pawns SET status = ?, redeemed_date = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(models.StatusRedeemed), redeemedDate, updatedAt, id.String(), string(models.StatusActive),
	)
	if err != nil {
		return fmt.Errorf("failed to redeem pawn record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetRecord(id); err != nil {
			return err
		}
		return fmt.Errorf("pawn %s: %w", id, ErrNotActive)
	}
	return nil
}

// DeleteRecord removes a pawn record.
func (s *SQLiteStore) DeleteRecord(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM pawns WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete pawn record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pawn %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetAllRecords retrieves all pawn records.
func (s *SQLiteStore) GetAllRecords() ([]*models.PawnRecord, error) {
	rows, err := s.db.Query(`SELECT ` + recordColumns + ` FROM pawns ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all pawn records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecordsByStatus retrieves the records in one lifecycle state.
func (s *SQLiteStore) GetRecordsByStatus(status models.Status) ([]*models.PawnRecord, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM pawns WHERE status = ? ORDER BY created_at ASC, rowid ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s pawn records: %w", status, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// SearchRecords finds records by serial number, customer name or phone number.
func (s *SQLiteStore) SearchRecords(query string) ([]*models.PawnRecord, error) {
	if query == "" {
		return s.GetAllRecords()
	}
	lowered := likePattern(strings.ToLower(query))
	rows, err := s.db.Query(
		`SELECT `+recordColumns+` FROM pawns
		WHERE LOWER(serial_number) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\' OR phone_number LIKE ? ESCAPE '\'
		ORDER BY created_at ASC, rowid ASC`,
		lowered, lowered, likePattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search pawn records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// likePattern wraps q for a substring LIKE match, escaping LIKE wildcards.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.PawnRecord, error) {
	var rec models.PawnRecord
	var idStr, jewelleryType, status, location string
	var redeemed sql.NullString
	var created, updated time.Time

	err := row.Scan(&idStr, &rec.SerialNumber, &rec.CustomerName, &rec.PhoneNumber, &rec.Address, &jewelleryType,
		&rec.JewelleryWeight, &rec.Principal, &rec.MonthlyRatePct, &rec.PaperLoanRatePct,
		&rec.PawnDate, &redeemed, &status, &location, &rec.StorageSerialNumber, &created, &updated)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt pawn id %q: %w", idStr, err)
	}
	rec.ID = id
	rec.JewelleryType = models.JewelleryType(jewelleryType)
	rec.Status = models.Status(status)
	rec.StorageLocation = models.StorageLocation(location)
	rec.CreatedAt = created
	rec.UpdatedAt = updated
	if redeemed.Valid && redeemed.String != "" {
		d, err := models.ParseDate(redeemed.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt redeemed date for pawn %s: %w", idStr, err)
		}
		rec.RedeemedDate = &d
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]*models.PawnRecord, error) {
	var records []*models.PawnRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pawn row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
