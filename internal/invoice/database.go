package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	resultBucketName   = "extraction_results"
	progressBucketName = "processing_progress"
	supplierBucketName = "supplier_profiles"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB defines the interface for record-store operations.
type DB interface {
	// SaveResult upserts an extraction record by filename; last write wins
	// and the extraction date is set to the current time on every save.
	SaveResult(record *ExtractionRecord) error

	// GetResult retrieves an extraction record by filename.
	GetResult(filename string) (*ExtractionRecord, error)

	// RegisterFile creates a pending progress row for a newly discovered
	// filename. Registering an already-known filename is a no-op, so the
	// original discovery order is preserved across runs.
	RegisterFile(filename string) error

	// ListUnprocessed returns the filenames whose progress status is still
	// pending, in discovery order.
	ListUnprocessed() ([]string, error)

	// UpdateProgress upserts the progress row for a filename.
	UpdateProgress(filename string, status Status, notes string) error

	// GetProgress retrieves the progress row for a filename.
	GetProgress(filename string) (*Progress, error)

	// SaveSupplier upserts a supplier profile.
	SaveSupplier(profile *SupplierProfile) error

	// GetSupplier retrieves a supplier profile by code.
	GetSupplier(supplierCode string) (*SupplierProfile, error)

	// ListSuppliers returns all supplier profiles.
	ListSuppliers() ([]*SupplierProfile, error)

	// Close closes the database connection.
	Close() error
}

// BoltDB implements the DB interface using BoltDB.
type BoltDB struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltDB creates a new BoltDB instance.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{resultBucketName, progressBucketName, supplierBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db, now: time.Now}, nil
}

// SaveResult upserts an extraction record by filename.
func (b *BoltDB) SaveResult(record *ExtractionRecord) error {
	if record.Filename == "" {
		return fmt.Errorf("saving result: filename is required")
	}
	record.ExtractionDate = b.now()
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		return bucket.Put([]byte(record.Filename), data)
	})
}

// GetResult retrieves an extraction record by filename.
func (b *BoltDB) GetResult(filename string) (*ExtractionRecord, error) {
	var record *ExtractionRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(resultBucketName)).Get([]byte(filename))
		if data == nil {
			return fmt.Errorf("result %s: %w", filename, ErrNotFound)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RegisterFile creates a pending progress row for a newly discovered file.
func (b *BoltDB) RegisterFile(filename string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(progressBucketName))
		if bucket.Get([]byte(filename)) != nil {
			return nil
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("assigning sequence: %w", err)
		}
		progress := &Progress{
			Filename: filename,
			Status:   StatusPending,
			Seq:      seq,
		}
		data, err := json.Marshal(progress)
		if err != nil {
			return fmt.Errorf("marshaling progress: %w", err)
		}
		return bucket.Put([]byte(filename), data)
	})
}

// ListUnprocessed returns pending filenames in discovery order.
func (b *BoltDB) ListUnprocessed() ([]string, error) {
	var pending []*Progress
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(progressBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var progress Progress
			if err := json.Unmarshal(v, &progress); err != nil {
				return fmt.Errorf("unmarshaling progress: %w", err)
			}
			if progress.Status == StatusPending {
				pending = append(pending, &progress)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })
	filenames := make([]string, 0, len(pending))
	for _, p := range pending {
		filenames = append(filenames, p.Filename)
	}
	return filenames, nil
}

// UpdateProgress upserts the progress row for a filename.
func (b *BoltDB) UpdateProgress(filename string, status Status, notes string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(progressBucketName))
		progress := &Progress{Filename: filename}
		if data := bucket.Get([]byte(filename)); data != nil {
			if err := json.Unmarshal(data, progress); err != nil {
				return fmt.Errorf("unmarshaling progress: %w", err)
			}
		} else {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("assigning sequence: %w", err)
			}
			progress.Seq = seq
		}
		progress.Status = status
		progress.Notes = notes
		progress.ProcessedDate = b.now()
		data, err := json.Marshal(progress)
		if err != nil {
			return fmt.Errorf("marshaling progress: %w", err)
		}
		return bucket.Put([]byte(filename), data)
	})
}

// GetProgress retrieves the progress row for a filename.
func (b *BoltDB) GetProgress(filename string) (*Progress, error) {
	var progress *Progress
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(progressBucketName)).Get([]byte(filename))
		if data == nil {
			return fmt.Errorf("progress %s: %w", filename, ErrNotFound)
		}
		return json.Unmarshal(data, &progress)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// SaveSupplier upserts a supplier profile.
func (b *BoltDB) SaveSupplier(profile *SupplierProfile) error {
	if profile.SupplierCode == "" {
		return fmt.Errorf("saving supplier: supplier code is required")
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(supplierBucketName))
		data, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshaling supplier: %w", err)
		}
		return bucket.Put([]byte(profile.SupplierCode), data)
	})
}

// GetSupplier retrieves a supplier profile by code.
func (b *BoltDB) GetSupplier(supplierCode string) (*SupplierProfile, error) {
	var profile *SupplierProfile
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(supplierBucketName)).Get([]byte(supplierCode))
		if data == nil {
			return fmt.Errorf("supplier %s: %w", supplierCode, ErrNotFound)
		}
		return json.Unmarshal(data, &profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListSuppliers returns all supplier profiles.
func (b *BoltDB) ListSuppliers() ([]*SupplierProfile, error) {
	profiles := make([]*SupplierProfile, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(supplierBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var profile SupplierProfile
			if err := json.Unmarshal(v, &profile); err != nil {
				return fmt.Errorf("unmarshaling supplier: %w", err)
			}
			profiles = append(profiles, &profile)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Close closes the database connection.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
