package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
)

const (
	// StorageV1
	//		- checkpoint records, format version 1
	StorageV1 int32 = 1 + iota

	CurrentStorageVersion int32 = StorageV1
)

const versionFilename = ".ver"

var (
	ErrDbUnknownType       = errors.New("non-existent database type")
	ErrInvalidKey          = errors.New("invalid key")
	ErrInvalidBatch        = errors.New("invalid batch")
	ErrNotFound            = errors.New("not found")
	ErrIncompatibleStorage = errors.New("incompatible storage")
)

// Range is a key range.
type Range struct {
	// Start of the key range, include in the range.
	Start []byte

	// Limit of the key range, not include in the range.
	Limit []byte
}

// BytesPrefix returns the range of all keys starting with prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			break
		}
	}
	return &Range{Start: prefix, Limit: limit}
}

// Contains reports whether key falls inside the range.
func (r *Range) Contains(key []byte) bool {
	if r.Start != nil && bytes.Compare(key, r.Start) < 0 {
		return false
	}
	return r.Limit == nil || bytes.Compare(key, r.Limit) < 0
}

type Iterator interface {
	Release()
	Error() error
	Next() bool
	Key() []byte
	Value() []byte
}

type Batch interface {
	Release()
	Put(key, value []byte) error
	Delete(key []byte) error
	Reset()
}

type Storage interface {
	Close() error
	// Get returns ErrNotFound if key not exist
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	Write(batch Batch) error
	NewBatch() Batch
	NewIterator(slice *Range) Iterator
}

type StorageDriver struct {
	DbType        string
	CreateStorage func(storPath string, args ...interface{}) (s Storage, err error)
	OpenStorage   func(storPath string, args ...interface{}) (s Storage, err error)
}

var drivers []StorageDriver

func RegisterDriver(instance StorageDriver) {
	for _, drv := range drivers {
		if drv.DbType == instance.DbType {
			return
		}
	}
	drivers = append(drivers, instance)
}

// CreateStorage intializes and opens a database.
func CreateStorage(dbtype, dbpath string, args ...interface{}) (Storage, error) {
	for _, drv := range drivers {
		if drv.DbType == dbtype {
			return drv.CreateStorage(dbpath, args...)
		}
	}
	return nil, ErrDbUnknownType
}

// OpenStorage opens an existing database.
func OpenStorage(dbtype, dbpath string, args ...interface{}) (Storage, error) {
	for _, drv := range drivers {
		if drv.DbType == dbtype {
			return drv.OpenStorage(dbpath, args...)
		}
	}
	return nil, ErrDbUnknownType
}

// OpenOrCreateStorage opens the database at dbpath, creating it when the
// directory does not exist yet.
func OpenOrCreateStorage(dbtype, dbpath string, args ...interface{}) (Storage, error) {
	if _, err := os.Stat(dbpath); os.IsNotExist(err) {
		return CreateStorage(dbtype, dbpath, args...)
	}
	return OpenStorage(dbtype, dbpath, args...)
}

func RegisteredDbTypes() []string {
	var types []string
	for _, drv := range drivers {
		types = append(types, drv.DbType)
	}
	return types
}

type storageVersion struct {
	Dbtype  string `json:"dbtype,omitempty"`
	Version int32  `json:"version,omitempty"`
}

// CheckCompatibility writes the version file into a fresh storage directory
// and rejects a directory written by another driver or format version.
func CheckCompatibility(dbtype, storPath string) error {
	verFile := filepath.Join(storPath, versionFilename)
	fs, err := os.Stat(verFile)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(storPath, 0700); err != nil {
			return pkgerrors.Wrap(err, "create storage directory")
		}
		data, err := json.Marshal(storageVersion{Dbtype: dbtype, Version: CurrentStorageVersion})
		if err != nil {
			return err
		}
		return pkgerrors.Wrap(ioutil.WriteFile(verFile, data, 0600), "write version file")
	}
	if err != nil {
		return err
	}
	if fs.IsDir() {
		return pkgerrors.Errorf("directory %s already exists", verFile)
	}

	data, err := ioutil.ReadFile(verFile)
	if err != nil {
		return pkgerrors.Wrap(err, "read version file")
	}
	var ver storageVersion
	if err := json.Unmarshal(data, &ver); err != nil {
		return pkgerrors.Wrap(err, "unmarshal version file")
	}
	if ver.Version == CurrentStorageVersion && ver.Dbtype == dbtype {
		return nil
	}
	return ErrIncompatibleStorage
}
