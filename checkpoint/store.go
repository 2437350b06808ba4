// Package checkpoint persists exported digest states of partially hashed
// files so that hashing can resume after an interruption.
package checkpoint

import (
	"bytes"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"massnet.org/massdigest/database/storage"
	"massnet.org/massdigest/logging"
)

var keyPrefix = []byte("ckpt/")

// recordKey is keyPrefix | algorithm | '/' | path. Algorithm names never
// contain a slash.
func recordKey(algorithm, path string) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(algorithm)+1+len(path))
	key = append(key, keyPrefix...)
	key = append(key, algorithm...)
	key = append(key, '/')
	return append(key, path...)
}

func splitKey(key []byte) (algorithm, path string, ok bool) {
	rest := key[len(keyPrefix):]
	i := bytes.IndexByte(rest, '/')
	if i <= 0 {
		return "", "", false
	}
	return string(rest[:i]), string(rest[i+1:]), true
}

// Store keeps at most one record per file path and algorithm.
type Store struct {
	mu sync.Mutex
	db storage.Storage
}

func NewStore(db storage.Storage) *Store {
	return &Store{db: db}
}

// Open opens or creates the checkpoint database of type dbtype in dir.
func Open(dbtype, dir string) (*Store, error) {
	if err := storage.CheckCompatibility(dbtype, dir); err != nil {
		return nil, errors.Wrapf(err, "checkpoint directory %s", dir)
	}
	db, err := storage.OpenOrCreateStorage(dbtype, filepath.Join(dir, "records"))
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint database")
	}
	return NewStore(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the record stored for r.Path and r.Algorithm.
func (s *Store) Save(r *Record) error {
	data, err := r.encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put(recordKey(r.Algorithm, r.Path), data); err != nil {
		return errors.Wrapf(err, "save checkpoint for %s", r.Path)
	}
	logging.VPrint(logging.DEBUG, "checkpoint saved", logging.LogFormat{
		"path":      r.Path,
		"algorithm": r.Algorithm,
		"offset":    r.Offset,
	})
	return nil
}

// Load returns the record of path hashed with algorithm, or ErrNotFound.
func (s *Store) Load(algorithm, path string) (*Record, error) {
	s.mu.Lock()
	data, err := s.db.Get(recordKey(algorithm, path))
	s.mu.Unlock()
	if err == storage.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load checkpoint for %s", path)
	}
	return decodeRecord(algorithm, path, data)
}

// Delete removes the record of path hashed with algorithm. Deleting a
// missing record is not an error.
func (s *Store) Delete(algorithm, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrapf(s.db.Delete(recordKey(algorithm, path)), "delete checkpoint for %s", path)
}

// List returns all records ordered by path, then algorithm. Corrupted
// records are skipped and logged.
func (s *Store) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.db.NewIterator(storage.BytesPrefix(keyPrefix))
	defer it.Release()

	var records []*Record
	for it.Next() {
		alg, path, ok := splitKey(it.Key())
		if !ok {
			logging.CPrint(logging.WARN, "skip malformed checkpoint key", logging.LogFormat{"key": string(it.Key())})
			continue
		}
		r, err := decodeRecord(alg, path, it.Value())
		if err != nil {
			logging.CPrint(logging.WARN, "skip corrupted checkpoint", logging.LogFormat{"path": path, "algorithm": alg, "err": err})
			continue
		}
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Path != records[j].Path {
			return records[i].Path < records[j].Path
		}
		return records[i].Algorithm < records[j].Algorithm
	})
	return records, errors.Wrap(it.Error(), "iterate checkpoints")
}

// Clear removes every record and returns how many were removed.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.db.NewIterator(storage.BytesPrefix(keyPrefix))
	batch := s.db.NewBatch()
	defer batch.Release()
	n := 0
	for it.Next() {
		if err := batch.Delete(it.Key()); err != nil {
			it.Release()
			return 0, err
		}
		n++
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return 0, errors.Wrap(err, "iterate checkpoints")
	}
	if err := s.db.Write(batch); err != nil {
		return 0, errors.Wrap(err, "clear checkpoints")
	}
	return n, nil
}
