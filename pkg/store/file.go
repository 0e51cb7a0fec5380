package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mcclellann/pawnLedger/pkg/models"
	log "github.com/sirupsen/logrus"
)

// FileStore keeps the whole record set in a single JSON file. It suits a
// single-counter shop that does not want a database.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	records []*models.PawnRecord
}

// NewFileStore loads path, creating an empty store when the file does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", path).Info("record file not found, starting with an empty store")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("could not read record file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.records); err != nil {
			return nil, fmt.Errorf("could not decode record file %s: %w", path, err)
		}
	}
	log.WithFields(log.Fields{"path": path, "records": len(s.records)}).Info("record file loaded")
	return s, nil
}

// persist writes the record set to a temp file and renames it over the old one.
// Callers hold the write lock.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

func (s *FileStore) indexOf(id uuid.UUID) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// clone copies a record so callers never share memory with the store.
func clone(rec *models.PawnRecord) *models.PawnRecord {
	c := *rec
	if rec.RedeemedDate != nil {
		d := *rec.RedeemedDate
		c.RedeemedDate = &d
	}
	return &c
}

func (s *FileStore) CreateRecord(rec *models.PawnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(rec.ID) >= 0 {
		return fmt.Errorf("failed to create pawn record: duplicate id %s", rec.ID)
	}
	for _, r := range s.records {
		if r.SerialNumber == rec.SerialNumber {
			return fmt.Errorf("serial %s: %w", rec.SerialNumber, ErrDuplicateSerial)
		}
	}
	s.records = append(s.records, clone(rec))
	if err := s.persist(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

func (s *FileStore) GetRecord(id uuid.UUID) (*models.PawnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("pawn %s: %w", id, ErrNotFound)
	}
	return clone(s.records[i]), nil
}

func (s *FileStore) UpdateRecord(rec *models.PawnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(rec.ID)
	if i < 0 {
		return fmt.Errorf("pawn %s: %w", rec.ID, ErrNotFound)
	}
	prev := s.records[i]
	s.records[i] = clone(rec)
	if err := s.persist(); err != nil {
		s.records[i] = prev
		return err
	}
	return nil
}

func (s *FileStore) RedeemRecord(id uuid.UUID, redeemedDate models.Date, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("pawn %s: %w", id, ErrNotFound)
	}
	prev := s.records[i]
	if prev.Status != models.StatusActive {
		return fmt.Errorf("pawn %s: %w", id, ErrNotActive)
	}
	next := clone(prev)
	next.Status = models.StatusRedeemed
	next.RedeemedDate = &redeemedDate
	next.UpdatedAt = updatedAt
	s.records[i] = next
	if err := s.persist(); err != nil {
		s.records[i] = prev
		return err
	}
	return nil
}

func (s *FileStore) DeleteRecord(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("pawn %s: %w", id, ErrNotFound)
	}
	prev := s.records
	s.records = append(append([]*models.PawnRecord{}, prev[:i]...), prev[i+1:]...)
	if err := s.persist(); err != nil {
		s.records = prev
		return err
	}
	return nil
}

func (s *FileStore) filter(keep func(*models.PawnRecord) bool) []*models.PawnRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.PawnRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	return out
}

func (s *FileStore) GetAllRecords() ([]*models.PawnRecord, error) {
	return s.filter(func(*models.PawnRecord) bool { return true }), nil
}

func (s *FileStore) GetRecordsByStatus(status models.Status) ([]*models.PawnRecord, error) {
	return s.filter(func(r *models.PawnRecord) bool { return r.Status == status }), nil
}

func (s *FileStore) SearchRecords(query string) ([]*models.PawnRecord, error) {
	return s.filter(func(r *models.PawnRecord) bool { return r.Matches(query) }), nil
}

func (s *FileStore) Close() error {
	return nil
}
