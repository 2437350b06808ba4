package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"massnet.org/massdigest/crypto/sha256"
)

func TestCheckDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, CheckConfig(cfg))
	assert.Equal(t, "sha256", cfg.Hash.Algorithm)
	assert.Equal(t, "generic", cfg.Hash.Transform)
	assert.EqualValues(t, DefaultInterval, cfg.Checkpoint.Interval)
}

func TestCheckConfigFillsSections(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, CheckConfig(cfg))
	assert.NotNil(t, cfg.Log)
	assert.NotNil(t, cfg.Hash)
	assert.NotNil(t, cfg.Checkpoint)
	assert.NotNil(t, cfg.Worker)
}

func TestCheckConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.LogLevel = "verbose" }},
		{"algorithm", func(c *Config) { c.Hash.Algorithm = "md5" }},
		{"transform", func(c *Config) { c.Hash.Transform = "avx9" }},
		{"small buffer", func(c *Config) { c.Hash.ReadBufferSize = 10 }},
		{"large buffer", func(c *Config) { c.Hash.ReadBufferSize = MaxReadBufferSize + 1 }},
		{"cache size", func(c *Config) { c.Hash.CacheSize = -1 }},
		{"db type", func(c *Config) { c.Checkpoint.DBType = "bolt" }},
		{"empty dir", func(c *Config) { c.Checkpoint.Dir = "" }},
		{"interval", func(c *Config) { c.Checkpoint.Interval = 100 }},
		{"pool size", func(c *Config) { c.Worker.PoolSize = -2 }},
	}
	for _, test := range tests {
		cfg := DefaultConfig()
		test.modify(cfg)
		assert.Error(t, CheckConfig(cfg), test.name)
	}
}

func TestCheckConfigDisabledCheckpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Checkpoint.Disable = true
	cfg.Checkpoint.DBType = "bolt"
	assert.NoError(t, CheckConfig(cfg))
}

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "massdigest-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	filename := filepath.Join(dir, DefaultConfigFilename)
	data := `{"hash": {"algorithm": "sha224", "read_buffer_size": 4096}, "worker": {"pool_size": 3}}`
	require.NoError(t, ioutil.WriteFile(filename, []byte(data), 0600))

	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	require.NoError(t, CheckConfig(cfg))
	assert.Equal(t, "sha224", cfg.Hash.Algorithm)
	assert.Equal(t, 4096, cfg.Hash.ReadBufferSize)
	assert.Equal(t, "generic", cfg.Hash.Transform)
	assert.Equal(t, 3, cfg.Worker.PoolSize)
	assert.Equal(t, DefaultLogLevel, cfg.Log.LogLevel)

	alg, err := sha256.LookupAlgorithm(cfg.Hash.Algorithm)
	require.NoError(t, err)
	assert.Equal(t, sha256.Size224, alg.Size)

	require.NoError(t, ioutil.WriteFile(filename, []byte("{"), 0600))
	_, err = LoadConfig(filename)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		err  bool
	}{
		{"4096", 4096, false},
		{"64KiB", 64 << 10, false},
		{"1MiB", 1 << 20, false},
		{"1M", 1000 * 1000, false},
		{"2 GiB", 2 << 30, false},
		{" 5MB ", 5 * 1000 * 1000, false},
		{"1.5KiB", 1536, false},
		{"10B", 10, false},
		{"", 0, true},
		{"-1", 0, true},
		{"lots", 0, true},
		{"12 parsecs", 0, true},
		{"99999999999999999999G", 0, true},
	}
	for _, test := range tests {
		got, err := ParseSize(test.in)
		if test.err {
			assert.Equal(t, ErrInvalidSize, err, test.in)
			continue
		}
		assert.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}
}

func TestAppDataDir(t *testing.T) {
	assert.Equal(t, ".", appDataDir("linux", "", false))
	assert.Equal(t, ".", appDataDir("linux", ".", false))

	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME not set")
	}
	got := appDataDir("linux", "massdigest", false)
	assert.Equal(t, ".massdigest", filepath.Base(got))
	got = appDataDir("darwin", ".massdigest", false)
	assert.Equal(t, "Massdigest", filepath.Base(got))
}

func TestCleanAndExpandPath(t *testing.T) {
	assert.Equal(t, "", CleanAndExpandPath(""))
	assert.Equal(t, "/a/b", CleanAndExpandPath("/a//b/"))
	os.Setenv("MASSDIGEST_TEST_DIR", "/tmp/x")
	defer os.Unsetenv("MASSDIGEST_TEST_DIR")
	assert.Equal(t, "/tmp/x/ckpt", CleanAndExpandPath("$MASSDIGEST_TEST_DIR/ckpt"))
}
