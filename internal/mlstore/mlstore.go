// Package mlstore persists an audit trail of model predictions.
//
// Every scored request is appended to a local BoltDB file, one bucket
// per model kind, keyed by timestamp for efficient range scans. The log
// is what makes auto-approval reviewable after the fact: given a
// disputed decision, the exact input, output and model version are on
// disk.
package mlstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"bookingml/internal/ml"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	approvalsBucket = "approvals"
	noshowsBucket   = "noshows"

	dbFile = "bookingml-predictions.db"
)

// Record is one logged prediction. Exactly one of Approval or NoShow is
// set, matching Kind.
type Record struct {
	ID   string    `json:"id"`
	Kind ml.Kind   `json:"kind"`
	At   time.Time `json:"at"`

	Input    ml.Input           `json:"input"`
	Approval *ml.ApprovalResult `json:"approval,omitempty"`
	NoShow   *ml.NoShowResult   `json:"noshow,omitempty"`
}

// Store is an append-oriented BoltDB log of predictions.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the prediction log under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prediction log: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(approvalsBucket)); err != nil {
			return fmt.Errorf("create approvals bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(noshowsBucket)); err != nil {
			return fmt.Errorf("create noshows bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LogApproval appends an approval prediction and returns its record ID.
func (s *Store) LogApproval(in ml.Input, res ml.ApprovalResult) (string, error) {
	rec := Record{
		ID:       uuid.NewString(),
		Kind:     ml.KindApproval,
		At:       res.At,
		Input:    in,
		Approval: &res,
	}
	return rec.ID, s.put(approvalsBucket, rec)
}

// LogNoShow appends a no-show prediction and returns its record ID.
func (s *Store) LogNoShow(in ml.Input, res ml.NoShowResult) (string, error) {
	rec := Record{
		ID:     uuid.NewString(),
		Kind:   ml.KindNoShow,
		At:     res.At,
		Input:  in,
		NoShow: &res,
	}
	return rec.ID, s.put(noshowsBucket, rec)
}

func (s *Store) put(bucket string, rec Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction record: %w", err)
		}

		// timestamp-first key keeps the bucket in scan order; the ID
		// suffix disambiguates predictions in the same nanosecond
		key := fmt.Sprintf("%020d_%s", rec.At.UnixNano(), rec.ID)
		return b.Put([]byte(key), data)
	})
}

// Range returns the logged predictions for a model kind within
// [start, end], oldest first.
func (s *Store) Range(kind ml.Kind, start, end time.Time) ([]Record, error) {
	bucket := approvalsBucket
	if kind == ml.KindNoShow {
		bucket = noshowsBucket
	}

	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()

		startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%020d", end.UnixNano()+1))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) < 0; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Count returns the number of logged predictions per model kind.
func (s *Store) Count() (approvals, noshows int, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		approvals = tx.Bucket([]byte(approvalsBucket)).Stats().KeyN
		noshows = tx.Bucket([]byte(noshowsBucket)).Stats().KeyN
		return nil
	})
	return approvals, noshows, err
}
