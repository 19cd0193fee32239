package statestore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"etlops/internal/config"
)

var bucketTrained = []byte("TrainedState")

// Bolt is a Store backed by a bbolt file. bbolt serialises writers, so one
// Bolt may be shared by concurrent pipeline workers.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the database at path. The file lock wait is
// bounded so a second process on the same file fails instead of hanging.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("statestore: bolt path must not be empty")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("statestore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTrained)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Load(ctx context.Context, key string) (config.Options, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketTrained).Get([]byte(key)); v != nil {
			// v is only valid inside the transaction.
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}
	return decode(key, raw)
}

func (b *Bolt) Save(ctx context.Context, key string, state config.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(state) == 0 {
		return b.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketTrained).Delete([]byte(key))
		})
	}
	data, err := encode(state)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTrained).Put([]byte(key), data)
	})
}

func (b *Bolt) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	p := []byte(prefix)
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTrained).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	return out, err
}

func (b *Bolt) Close() error { return b.db.Close() }
