package database

import (
	"encoding/json"
	"fmt"

	"github.com/thisyearnofear/detective-sub003/internal/database"
	"github.com/thisyearnofear/detective-sub003/internal/database/reply/model"
	bolt "go.etcd.io/bbolt"
)

const bucket = "replies"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Store(m model.Reply) error {
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

func (db *DB) Delete(id string) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// FetchPending returns every reply still waiting for delivery.
func (db *DB) FetchPending() ([]model.Reply, error) {
	var list []model.Reply
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var r model.Reply
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			if r.Status == model.StatusPending {
				list = append(list, r)
			}
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}
