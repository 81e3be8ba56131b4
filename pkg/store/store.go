// Package store keeps an audit trail of checkpoint runs: the persisted
// checkpoints, the transition results computed from them and the events
// emitted along the way.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cgast/docverify/pkg/events"
	"github.com/cgast/docverify/pkg/verify"
)

// Buckets.
const (
	BucketRuns    = "runs"    // run ID → RunRecord
	BucketResults = "results" // run ID → verify.PipelineResult
	BucketEvents  = "events"  // sequence → events.Event, append-only
)

// ErrRunNotFound is returned when a run ID has no stored record.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a stored checkpoint run.
type RunRecord struct {
	SavedAt  time.Time       `json:"saved_at"`
	Snapshot verify.Snapshot `json:"snapshot"`
}

// RunInfo summarizes a stored run for listings.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	SavedAt     time.Time `json:"saved_at"`
	Checkpoints []string  `json:"checkpoints"`
	HasResults  bool      `json:"has_results"`
}

// BoltStore is a bbolt-backed audit store.
type BoltStore struct {
	db  *bolt.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Open opens or creates the store at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketRuns, BucketResults, BucketEvents} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// SaveRun stores snap under its run ID, replacing any earlier record.
func (s *BoltStore) SaveRun(snap verify.Snapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	rec := RunRecord{SavedAt: s.now().UTC(), Snapshot: snap}
	return s.put(BucketRuns, snap.RunID, rec)
}

// LoadRun returns the snapshot stored for id.
func (s *BoltStore) LoadRun(id string) (verify.Snapshot, error) {
	var rec RunRecord
	if err := s.get(BucketRuns, id, &rec); err != nil {
		return verify.Snapshot{}, err
	}
	return rec.Snapshot, nil
}

// SaveResults stores the transition results computed for run id.
func (s *BoltStore) SaveResults(id string, p verify.PipelineResult) error {
	return s.put(BucketResults, id, p)
}

// LoadResults returns the transition results stored for run id.
func (s *BoltStore) LoadResults(id string) (verify.PipelineResult, error) {
	var p verify.PipelineResult
	if err := s.get(BucketResults, id, &p); err != nil {
		return verify.PipelineResult{}, err
	}
	return p, nil
}

// ListRuns returns every stored run, oldest first.
func (s *BoltStore) ListRuns() ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RunInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		results := tx.Bucket([]byte(BucketResults))
		return tx.Bucket([]byte(BucketRuns)).ForEach(func(k, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal run %s: %w", string(k), err)
			}
			out = append(out, RunInfo{
				RunID:       string(k),
				SavedAt:     rec.SavedAt,
				Checkpoints: rec.Snapshot.Order,
				HasResults:  results.Get(k) != nil,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out, nil
}

// DeleteRun removes a run and its results. Events are kept.
func (s *BoltStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		if runs.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		if err := runs.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketResults)).Delete([]byte(id))
	})
}

// AppendEvent adds e to the event log and returns its sequence number.
func (s *BoltStore) AppendEvent(e events.Event) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketEvents))
		var err error
		if seq, err = b.NextSequence(); err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		return b.Put(seqKey(seq), data)
	})
	return seq, err
}

// Events returns logged events in append order. A non-empty run restricts
// the result to that run's events.
func (s *BoltStore) Events(run string) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketEvents)).ForEach(func(k, v []byte) error {
			var e events.Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal event %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if run == "" || e.Run == run {
				out = append(out, e)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *BoltStore) get(bucket, key string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, key)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

// seqKey encodes seq big-endian so keys sort in append order.
func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
