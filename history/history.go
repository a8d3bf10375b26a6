// Package history persists the completed-job log: an append-only,
// most-recent-first list of terminal job snapshots, capped at a fixed
// number of entries.
package history

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/lumenworks/shuttle/engine"
)

// DefaultCap is how many records the log retains before pruning the oldest.
const DefaultCap = 100

var (
	historyBucket = []byte("history")
	recordsKey    = []byte("records")
)

// Log is a bbolt-backed history log. The whole list lives as one serialized
// document under a single key; a missing or corrupt document reads as empty
// rather than failing.
type Log struct {
	db  *bbolt.DB
	cap int
}

// Open opens (or creates) the history log at path. A capacity <= 0 selects
// DefaultCap.
func Open(path string, capacity int) (*Log, error) {
	if capacity <= 0 {
		capacity = DefaultCap
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(historyBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	return &Log{db: db, cap: capacity}, nil
}

// Append prepends a record and prunes the list back to the cap.
func (l *Log) Append(rec engine.HistoryRecord) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(historyBucket)

		records := decodeRecords(b.Get(recordsKey))
		records = append([]engine.HistoryRecord{rec}, records...)
		if len(records) > l.cap {
			records = records[:l.cap]
		}

		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		return b.Put(recordsKey, data)
	})
}

// List returns all records, most recent first.
func (l *Log) List() ([]engine.HistoryRecord, error) {
	var records []engine.HistoryRecord
	err := l.db.View(func(tx *bbolt.Tx) error {
		records = decodeRecords(tx.Bucket(historyBucket).Get(recordsKey))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// decodeRecords tolerates a missing or corrupt document: history is
// bookkeeping, so it degrades to empty instead of surfacing a read error.
func decodeRecords(data []byte) []engine.HistoryRecord {
	if len(data) == 0 {
		return nil
	}
	var records []engine.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}
