package database

import (
	"encoding/json"
	"fmt"

	"github.com/thisyearnofear/detective-sub003/internal/database"
	"github.com/thisyearnofear/detective-sub003/internal/database/match/model"
	bolt "go.etcd.io/bbolt"
)

const bucket = "matches"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Store(m model.Match) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		if err := b.Put([]byte(m.ID), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Fetch(id string) (model.Match, error) {
	var m model.Match
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}

		bytes := b.Get([]byte(id))
		if len(bytes) == 0 {
			return ErrNotFound
		}

		if err := json.Unmarshal(bytes, &m); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}

		return nil
	}); err != nil {
		return m, err
	}

	return m, nil
}

func (db *DB) FetchByCycle(cycleID uint64) ([]model.Match, error) {
	var list []model.Match
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var m model.Match
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			if m.CycleID == cycleID {
				list = append(list, m)
			}
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}
