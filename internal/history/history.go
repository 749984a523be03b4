// Package history keeps the local play history and resume positions in a bbolt file.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/melodex/internal/models"
	"go.etcd.io/bbolt"
)

var (
	entriesBucket = []byte("history")
	indexBucket   = []byte("history_index")
)

// Entry is one recently played song.
type Entry struct {
	Song     models.Song `json:"song"`
	PlayedAt time.Time   `json:"played_at"`
	ResumeAt float64     `json:"resume_at"`
}

// Store is the history database. Entries are keyed by a bucket sequence so the
// newest play sorts last; a second bucket maps song ids to their entry key.
type Store struct {
	db    *bbolt.DB
	limit int
	now   func() time.Time
}

// Open opens or creates the history file at path. A positive limit caps the number of entries kept.
func Open(path string, limit int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create history directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(indexBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create history buckets: %w", err)
	}

	return &Store{db: db, limit: limit, now: time.Now}, nil
}

// Add records a play of song, moving an existing entry for it to the front and resetting its resume position.
func (s *Store) Add(song models.Song) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		entries, index := tx.Bucket(entriesBucket), tx.Bucket(indexBucket)

		if err := removeEntry(entries, index, song.ID); err != nil {
			return err
		}
		if err := putEntry(entries, index, Entry{Song: song, PlayedAt: s.now().UTC()}); err != nil {
			return err
		}
		return s.prune(entries, index)
	})
}

// UpdatePosition stores the resume position of song. Unknown songs are ignored.
func (s *Store) UpdatePosition(songID string, position float64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		entries, index := tx.Bucket(entriesBucket), tx.Bucket(indexBucket)

		key := index.Get([]byte(songID))
		if key == nil {
			return nil
		}

		var entry Entry
		if err := json.Unmarshal(entries.Get(key), &entry); err != nil {
			return fmt.Errorf("error deserializing history entry: %w", err)
		}
		entry.ResumeAt = max(position, 0)

		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("error serializing history entry: %w", err)
		}
		return entries.Put(key, value)
	})
}

// Get returns the entry for songID.
func (s *Store) Get(songID string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(indexBucket).Get([]byte(songID))
		if key == nil {
			return nil
		}
		found = true
		return json.Unmarshal(tx.Bucket(entriesBucket).Get(key), &entry)
	})
	return entry, found, err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	entries := []Entry{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(entriesBucket).Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(entries) < limit); k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("error deserializing history entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, indexBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func putEntry(entries, index *bbolt.Bucket, entry Entry) error {
	seq, err := entries.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error serializing history entry: %w", err)
	}
	if err := entries.Put(key, value); err != nil {
		return err
	}
	return index.Put([]byte(entry.Song.ID), key)
}

func removeEntry(entries, index *bbolt.Bucket, songID string) error {
	key := index.Get([]byte(songID))
	if key == nil {
		return nil
	}
	if err := entries.Delete(key); err != nil {
		return err
	}
	return index.Delete([]byte(songID))
}

// prune drops the oldest entries beyond the limit.
func (s *Store) prune(entries, index *bbolt.Bucket) error {
	if s.limit <= 0 {
		return nil
	}
	count := 0
	c := entries.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	excess := count - s.limit
	if excess <= 0 {
		return nil
	}

	var victims []string
	for k, v := c.First(); k != nil && len(victims) < excess; k, v = c.Next() {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("error deserializing history entry: %w", err)
		}
		victims = append(victims, entry.Song.ID)
	}
	for _, id := range victims {
		if err := removeEntry(entries, index, id); err != nil {
			return err
		}
	}
	return nil
}
