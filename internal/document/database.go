package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// DB defines the interface for database operations
type DB interface {
	// Save creates or replaces a record
	Save(record *Record) error

	// Get retrieves a record by kind and ID
	Get(kind Kind, id string) (*Record, error)

	// List returns all records of a kind, oldest first
	List(kind Kind) ([]*Record, error)

	// Delete removes a record
	Delete(kind Kind, id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB, one bucket per Kind
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, kind := range Kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func bucket(tx *bbolt.Tx, kind Kind) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(kind))
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return b, nil
}

// Save creates or replaces a record
func (b *BoltDB) Save(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bucket(tx, record.Kind)
		if err != nil {
			return err
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bkt.Put([]byte(record.ID), data)
	})
}

// Get retrieves a record by kind and ID
func (b *BoltDB) Get(kind Kind, id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bucket(tx, kind)
		if err != nil {
			return err
		}
		data := bkt.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all records of a kind, oldest first
func (b *BoltDB) List(kind Kind) ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bucket(tx, kind)
		if err != nil {
			return err
		}
		return bkt.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record %s: %w", k, err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b *Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return records, nil
}

// Delete removes a record. Deleting a missing record returns ErrNotFound.
func (b *BoltDB) Delete(kind Kind, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bucket(tx, kind)
		if err != nil {
			return err
		}
		if bkt.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bkt.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
