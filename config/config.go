package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
	"massnet.org/massdigest/crypto/sha256"
	"massnet.org/massdigest/database/storage"
	_ "massnet.org/massdigest/database/storage/ldbstorage"
	"massnet.org/massdigest/logging"
)

const (
	AppName                  = "massdigest"
	DefaultConfigFilename    = "config.json"
	DefaultLoggingFilename   = "massdigest"
	DefaultLogLevel          = "info"
	defaultLogDirname        = "logs"
	defaultCheckpointDirname = "checkpoints"
	defaultDbType            = "leveldb"
	defaultAlgorithm         = "sha256"
	defaultTransform         = "generic"
	DefaultReadBufferSize    = 1 << 20
	DefaultInterval          = 64 << 20
	DefaultCacheSize         = 1024
	defaultLogAge            = 7

	// MinReadBufferSize keeps every read at least one block long.
	MinReadBufferSize = sha256.BlockSize
	MaxReadBufferSize = 64 << 20
	MaxPoolSize       = 1024
)

var DefaultHomeDir = AppDataDir(AppName, false)

type Config struct {
	Log        *Log        `json:"log"`
	Hash       *Hash       `json:"hash"`
	Checkpoint *Checkpoint `json:"checkpoint"`
	Worker     *Worker     `json:"worker"`
}

type Log struct {
	LogDir        string `json:"log_dir"`
	LogLevel      string `json:"log_level"`
	LogAge        uint32 `json:"log_age"`
	DisableCPrint bool   `json:"disable_cprint"`
}

type Hash struct {
	Algorithm      string `json:"algorithm"`
	Transform      string `json:"transform"`
	ReadBufferSize int    `json:"read_buffer_size"`
	CacheSize      int    `json:"cache_size"`
}

type Checkpoint struct {
	Disable bool   `json:"disable"`
	Dir     string `json:"dir"`
	DBType  string `json:"db_type"`
	// Interval is the number of bytes hashed between two saved checkpoints.
	Interval uint64 `json:"interval"`
}

type Worker struct {
	// PoolSize of zero selects the number of logical CPUs.
	PoolSize int `json:"pool_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Log:        DefaultLog(),
		Hash:       DefaultHash(),
		Checkpoint: DefaultCheckpoint(),
		Worker:     DefaultWorker(),
	}
}

func DefaultLog() *Log {
	return &Log{
		LogDir:        filepath.Join(DefaultHomeDir, defaultLogDirname),
		LogLevel:      DefaultLogLevel,
		LogAge:        defaultLogAge,
		DisableCPrint: false,
	}
}

func DefaultHash() *Hash {
	return &Hash{
		Algorithm:      defaultAlgorithm,
		Transform:      defaultTransform,
		ReadBufferSize: DefaultReadBufferSize,
		CacheSize:      DefaultCacheSize,
	}
}

func DefaultCheckpoint() *Checkpoint {
	return &Checkpoint{
		Dir:      filepath.Join(DefaultHomeDir, defaultCheckpointDirname),
		DBType:   defaultDbType,
		Interval: DefaultInterval,
	}
}

func DefaultWorker() *Worker {
	return &Worker{
		PoolSize: 0,
	}
}

func LoadConfig(filename string) (*Config, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err = json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", filename)
	}
	return cfg, nil
}

// CheckConfig fills missing sections with defaults, expands paths and
// validates every option.
func CheckConfig(cfg *Config) error {
	if cfg.Log == nil {
		cfg.Log = DefaultLog()
	}
	if cfg.Hash == nil {
		cfg.Hash = DefaultHash()
	}
	if cfg.Checkpoint == nil {
		cfg.Checkpoint = DefaultCheckpoint()
	}
	if cfg.Worker == nil {
		cfg.Worker = DefaultWorker()
	}

	// Checks for log
	cfg.Log.LogDir = CleanAndExpandPath(cfg.Log.LogDir)
	if cfg.Log.LogLevel == "" {
		cfg.Log.LogLevel = DefaultLogLevel
	}
	if !logging.IsLevel(cfg.Log.LogLevel) {
		return fmt.Errorf("invalid log level %q", cfg.Log.LogLevel)
	}

	// Checks for hash
	if cfg.Hash.Algorithm == "" {
		cfg.Hash.Algorithm = defaultAlgorithm
	}
	if _, err := sha256.LookupAlgorithm(cfg.Hash.Algorithm); err != nil {
		return errors.Wrapf(err, "hash algorithm %q", cfg.Hash.Algorithm)
	}
	if cfg.Hash.Transform == "" {
		cfg.Hash.Transform = defaultTransform
	}
	if _, err := sha256.LookupTransform(cfg.Hash.Transform); err != nil {
		return errors.Wrapf(err, "block transform %q", cfg.Hash.Transform)
	}
	if cfg.Hash.ReadBufferSize == 0 {
		cfg.Hash.ReadBufferSize = DefaultReadBufferSize
	}
	if cfg.Hash.ReadBufferSize < MinReadBufferSize || cfg.Hash.ReadBufferSize > MaxReadBufferSize {
		return fmt.Errorf("read buffer size %d out of range [%d, %d]",
			cfg.Hash.ReadBufferSize, MinReadBufferSize, MaxReadBufferSize)
	}
	if cfg.Hash.CacheSize < 0 {
		return fmt.Errorf("invalid cache size %d", cfg.Hash.CacheSize)
	}

	// Checks for checkpoint
	cfg.Checkpoint.Dir = CleanAndExpandPath(cfg.Checkpoint.Dir)
	if !cfg.Checkpoint.Disable {
		if cfg.Checkpoint.Dir == "" {
			return errors.New("checkpoint dir cannot be empty")
		}
		if !isRegisteredDbType(cfg.Checkpoint.DBType) {
			return fmt.Errorf("invalid checkpoint db type %q, supported %v",
				cfg.Checkpoint.DBType, storage.RegisteredDbTypes())
		}
		if cfg.Checkpoint.Interval == 0 {
			cfg.Checkpoint.Interval = DefaultInterval
		}
		if cfg.Checkpoint.Interval < uint64(cfg.Hash.ReadBufferSize) {
			return fmt.Errorf("checkpoint interval %d smaller than read buffer size %d",
				cfg.Checkpoint.Interval, cfg.Hash.ReadBufferSize)
		}
	}

	// Checks for worker
	if cfg.Worker.PoolSize < 0 || cfg.Worker.PoolSize > MaxPoolSize {
		return fmt.Errorf("worker pool size %d out of range [0, %d]", cfg.Worker.PoolSize, MaxPoolSize)
	}
	return nil
}

func isRegisteredDbType(dbtype string) bool {
	for _, t := range storage.RegisteredDbTypes() {
		if t == dbtype {
			return true
		}
	}
	return false
}
