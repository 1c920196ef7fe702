package database

import (
	"encoding/json"
	"fmt"

	"github.com/thisyearnofear/detective-sub003/internal/byteutil"
	"github.com/thisyearnofear/detective-sub003/internal/database"
	"github.com/thisyearnofear/detective-sub003/internal/database/cycle/model"
	bolt "go.etcd.io/bbolt"
)

const bucket = "cycles"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Store(m model.Cycle) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		if err := b.Put(byteutil.EncodeUint64ToBytes(m.ID), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Fetch(id uint64) (model.Cycle, error) {
	var c model.Cycle
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}

		bytes := b.Get(byteutil.EncodeUint64ToBytes(id))
		if len(bytes) == 0 {
			return ErrNotFound
		}

		if err := json.Unmarshal(bytes, &c); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}

		return nil
	}); err != nil {
		return c, err
	}

	return c, nil
}

// FetchLatest returns the cycle with the highest id, the only one that can
// still be active.
func (db *DB) FetchLatest() (model.Cycle, error) {
	var c model.Cycle
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}

		_, v := b.Cursor().Last()
		if len(v) == 0 {
			return ErrNotFound
		}

		if err := json.Unmarshal(v, &c); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}

		return nil
	}); err != nil {
		return c, err
	}

	return c, nil
}
