package database

import (
	"encoding/json"
	"fmt"

	"github.com/thisyearnofear/detective-sub003/internal/byteutil"
	"github.com/thisyearnofear/detective-sub003/internal/cache"
	"github.com/thisyearnofear/detective-sub003/internal/database"
	"github.com/thisyearnofear/detective-sub003/internal/database/stat/model"
	bolt "go.etcd.io/bbolt"
)

const bucket = "stat"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

func (db *DB) Fetch(fid uint64) (model.Stat, error) {
	var s model.Stat
	if db.cache != nil {
		if v, ok := db.cache.Get(fid); ok {
			return v.(model.Stat), nil
		}
	}

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}

		bytes := b.Get(byteutil.EncodeUint64ToBytes(fid))
		if len(bytes) == 0 {
			return ErrNotFound
		}

		if err := json.Unmarshal(bytes, &s); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}

		return nil
	}); err != nil {
		return s, err
	}

	if db.cache != nil {
		db.cache.Add(fid, s)
	}

	return s, nil
}

func (db *DB) Store(m model.Stat) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		if err := b.Put(byteutil.EncodeUint64ToBytes(m.Fid), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(m.Fid)
	}

	return nil
}

func (db *DB) FetchAll() ([]model.Stat, error) {
	var list []model.Stat
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var s model.Stat
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			list = append(list, s)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}
