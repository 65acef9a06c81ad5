package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

type boltRecord struct {
	Values     map[string]string `json:"values"`
	LastAccess time.Time         `json:"last_access"`
}

// BoltStore keeps sessions in a local bbolt file so they survive restarts
// of a single node.
type BoltStore struct {
	db          *bbolt.DB
	idleTimeout time.Duration
	now         func() time.Time
}

// NewBoltStoreFromFile opens (or creates) the bbolt database at path.
func NewBoltStoreFromFile(path string, idleTimeout time.Duration) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBoltStore(db, idleTimeout)
}

func NewBoltStore(db *bbolt.DB, idleTimeout time.Duration) (*BoltStore, error) {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}
	return &BoltStore{db: db, idleTimeout: idleTimeout, now: time.Now}, nil
}

// mutate loads the live record for id inside one write transaction, lets fn
// change it, and writes it back with a fresh access time.
func (s *BoltStore) mutate(id string, create bool, fn func(rec *boltRecord)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		now := s.now()

		var rec boltRecord
		if data := b.Get([]byte(id)); data != nil {
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			if now.Sub(rec.LastAccess) > s.idleTimeout {
				rec = boltRecord{}
			}
		}
		if rec.Values == nil {
			if !create {
				return b.Delete([]byte(id))
			}
			rec.Values = make(map[string]string)
		}

		fn(&rec)
		rec.LastAccess = now

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) Get(_ context.Context, id, key string) (v string, ok bool, err error) {
	if id == "" {
		return "", false, nil
	}
	err = s.mutate(id, false, func(rec *boltRecord) {
		v, ok = rec.Values[key]
	})
	return v, ok, err
}

func (s *BoltStore) Set(_ context.Context, id, key, value string) error {
	if id == "" {
		return ErrInvalidID
	}
	return s.mutate(id, true, func(rec *boltRecord) {
		rec.Values[key] = value
	})
}

func (s *BoltStore) Remove(_ context.Context, id, key string) error {
	if id == "" {
		return nil
	}
	return s.mutate(id, false, func(rec *boltRecord) {
		delete(rec.Values, key)
	})
}

// Take runs inside a single bbolt write transaction, which bbolt serialises.
func (s *BoltStore) Take(_ context.Context, id, key string) (v string, ok bool, err error) {
	if id == "" {
		return "", false, nil
	}
	err = s.mutate(id, false, func(rec *boltRecord) {
		v, ok = rec.Values[key]
		delete(rec.Values, key)
	})
	return v, ok, err
}

func (s *BoltStore) Destroy(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
}

// Sweep deletes idle sessions and reports how many went.
func (s *BoltStore) Sweep() (int, error) {
	n := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		now := s.now()

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil || now.Sub(rec.LastAccess) > s.idleTimeout {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(stale)
		return nil
	})
	return n, err
}

func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(sessionsBucket) == nil {
			return fmt.Errorf("session: bucket missing")
		}
		return nil
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }
