package cache

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketEntries = []byte("entries")
	bucketTags    = []byte("tags")
)

var _ Cache = (*Bolt)(nil)

// Bolt is a Cache stored in a bbolt file. Entries live in one bucket; every
// tag is a nested bucket of the tags bucket listing its keys.
type Bolt struct {
	db *bolt.DB
}

func OpenBolt(filename string) (*Bolt, error) {
	db, err := bolt.Open(filename, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", filename, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketTags)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Has(key string) (bool, error) {
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketEntries).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

func (b *Bolt) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketEntries).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (b *Bolt) Set(key string, value []byte, tags ...string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketEntries).Put([]byte(key), value); err != nil {
			return err
		}
		for _, tag := range tags {
			tb, err := tx.Bucket(bucketTags).CreateBucketIfNotExists([]byte(tag))
			if err != nil {
				return err
			}
			if err := tb.Put([]byte(key), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) FlushByTag(tag string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		tags := tx.Bucket(bucketTags)
		tb := tags.Bucket([]byte(tag))
		if tb == nil {
			return nil
		}
		entries := tx.Bucket(bucketEntries)
		c := tb.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := entries.Delete(k); err != nil {
				return err
			}
		}
		return tags.DeleteBucket([]byte(tag))
	})
}

func (b *Bolt) Close() error {
	if b == nil {
		return nil
	}
	return b.db.Close()
}
