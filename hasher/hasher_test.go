package hasher

import (
	"context"
	stdsha256 "crypto/sha256"
	"encoding/hex"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"massnet.org/massdigest/checkpoint"
	"massnet.org/massdigest/config"
	"massnet.org/massdigest/crypto/sha256"
	"massnet.org/massdigest/database/storage"
	"massnet.org/massdigest/database/storage/ldbstorage"
	"massnet.org/massdigest/errors"
	"massnet.org/massdigest/logging"
	"massnet.org/massdigest/testutil"
)

const hookTransform = "test-hook"

var (
	hookMu sync.Mutex
	// hook runs after every transform call with the running block count.
	hook   func(blocks int)
	blocks int
)

func setHook(fn func(blocks int)) {
	hookMu.Lock()
	hook, blocks = fn, 0
	hookMu.Unlock()
}

func init() {
	sha256.RegisterTransform(sha256.TransformFunc{
		ID: hookTransform,
		Fn: func(h *[8]uint32, p []byte) {
			sha256.Generic.Block(h, p)
			hookMu.Lock()
			blocks += len(p) / sha256.BlockSize
			fn, n := hook, blocks
			hookMu.Unlock()
			if fn != nil {
				fn(n)
			}
		},
	})
}

type testEnv struct {
	dir   string
	db    storage.Storage
	store *checkpoint.Store
	svc   *Service
}

func newTestEnv(t *testing.T, modify func(cfg *config.Config)) *testEnv {
	logging.InitConsole(ioutil.Discard, logging.DebugLevel)

	dir, err := ioutil.TempDir("", "massdigest-hasher")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Hash.ReadBufferSize = 64
	cfg.Hash.Transform = hookTransform
	cfg.Checkpoint.Interval = 128
	cfg.Worker.PoolSize = 4
	if modify != nil {
		modify(cfg)
	}
	require.NoError(t, config.CheckConfig(cfg))

	db, err := ldbstorage.NewMemDB("")
	require.NoError(t, err)
	store := checkpoint.NewStore(db)

	svc, err := NewService(cfg, store)
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	return &testEnv{dir: dir, db: db, store: store, svc: svc}
}

func (env *testEnv) close() {
	env.svc.Stop()
	env.store.Close()
	os.RemoveAll(env.dir)
	setHook(nil)
}

func (env *testEnv) writeFile(t *testing.T, name string, size int) (string, []byte) {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i>>8)
	}
	path := filepath.Join(env.dir, name)
	require.NoError(t, ioutil.WriteFile(path, data, 0600))
	return path, data
}

func sum224(data []byte) []byte {
	s := stdsha256.Sum224(data)
	return s[:]
}

func sum256(data []byte) []byte {
	s := stdsha256.Sum256(data)
	return s[:]
}

func TestHashFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	defer env.close()

	sizes := []int{0, 1, 55, 56, 63, 64, 65, 127, 128, 129, 1000, 4097}
	var reqs []Request
	var want [][]byte
	for i, size := range sizes {
		path, data := env.writeFile(t, "f"+string(rune('a'+i)), size)
		reqs = append(reqs, Request{Path: path})
		want = append(want, sum256(data))
		reqs = append(reqs, Request{Path: path, Algorithm: "sha224"})
		want = append(want, sum224(data))
	}

	results, err := env.svc.HashFiles(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	for i, res := range results {
		require.NotNil(t, res, reqs[i].Path)
		assert.Equal(t, want[i], res.Sum, "%s %s", reqs[i].Path, reqs[i].Algorithm)
		assert.Equal(t, reqs[i].Path, res.Path)
		assert.False(t, res.Resumed)
	}
	assert.Equal(t, "sha256", results[0].Algorithm)
	assert.Equal(t, "sha224", results[1].Algorithm)
	assert.EqualValues(t, 4097, results[len(results)-1].Size)

	// finished jobs leave no checkpoint behind
	records, err := env.store.List()
	require.NoError(t, err)
	assert.Empty(t, records, spew.Sdump(records))
	assert.Equal(t, 0, env.svc.Running())
}

func TestCachedResult(t *testing.T) {
	env := newTestEnv(t, nil)
	defer env.close()

	path, data := env.writeFile(t, "cached", 300)
	for i, cached := range []bool{false, true} {
		job, err := env.svc.Submit(context.Background(), Request{Path: path})
		require.NoError(t, err)
		res, err := job.Wait()
		require.NoError(t, err)
		assert.Equal(t, cached, res.Cached, "round %d", i)
		assert.Equal(t, sum256(data), res.Sum)
		assert.Equal(t, hex.EncodeToString(sum256(data)), res.Hex())
	}

	// another algorithm is a different cache entry
	job, err := env.svc.Submit(context.Background(), Request{Path: path, Algorithm: "sha224"})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestResumeFromCheckpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	defer env.close()

	path, data := env.writeFile(t, "resume", 1000)
	fi, err := os.Stat(path)
	require.NoError(t, err)

	for _, name := range []string{"sha256", "sha224"} {
		alg, err := sha256.LookupAlgorithm(name)
		require.NoError(t, err)
		d := alg.New()
		d.Update(data[:321])
		require.NoError(t, env.store.Save(checkpoint.NewRecord(path, fi, alg, d)))

		job, err := env.svc.Submit(context.Background(), Request{Path: path, Algorithm: name, Resume: true})
		require.NoError(t, err)
		res, err := job.Wait()
		require.NoError(t, err)
		assert.True(t, res.Resumed, name)
		if name == "sha256" {
			assert.Equal(t, sum256(data), res.Sum)
		} else {
			assert.Equal(t, sum224(data), res.Sum)
		}

		_, err = env.store.Load(name, path)
		assert.Equal(t, checkpoint.ErrNotFound, err)
	}
}

func TestStaleCheckpointIgnored(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Hash.CacheSize = 0 })
	defer env.close()

	path, data := env.writeFile(t, "stale", 500)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	alg, _ := sha256.LookupAlgorithm("sha256")

	d := alg.New()
	d.Update([]byte("something else entirely, same length prefix"))
	r := checkpoint.NewRecord(path, fi, alg, d)
	r.ModTime = fi.ModTime().Add(-time.Minute)
	require.NoError(t, env.store.Save(r))

	job, err := env.svc.Submit(context.Background(), Request{Path: path, Resume: true})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.False(t, res.Resumed)
	assert.Equal(t, sum256(data), res.Sum)

	_, err = env.store.Load("sha256", path)
	assert.Equal(t, checkpoint.ErrNotFound, err)

	// a checkpoint of the other algorithm is neither used nor removed
	d = alg.New()
	d.Update(data[:100])
	require.NoError(t, env.store.Save(checkpoint.NewRecord(path, fi, alg, d)))
	job, err = env.svc.Submit(context.Background(), Request{Path: path, Algorithm: "sha224", Resume: true})
	require.NoError(t, err)
	res, err = job.Wait()
	require.NoError(t, err)
	assert.False(t, res.Resumed)
	assert.Equal(t, sum224(data), res.Sum)

	r, err = env.store.Load("sha256", path)
	require.NoError(t, err)
	assert.EqualValues(t, 100, r.Offset)
}

func TestCorruptedCheckpointRemoved(t *testing.T) {
	env := newTestEnv(t, nil)
	defer env.close()

	path, data := env.writeFile(t, "corrupted", 300)
	abs := mustAbs(t, path)
	// record key layout of the checkpoint store
	require.NoError(t, env.db.Put([]byte("ckpt/sha256/"+abs), []byte{1, 2, 3}))
	_, err := env.store.Load("sha256", abs)
	require.Equal(t, checkpoint.ErrCorrupted, err)

	job, err := env.svc.Submit(context.Background(), Request{Path: path, Resume: true})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.False(t, res.Resumed)
	assert.Equal(t, sum256(data), res.Sum)

	_, err = env.store.Load("sha256", abs)
	assert.Equal(t, checkpoint.ErrNotFound, err)
}

func TestCheckpointsPerAlgorithm(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Hash.CacheSize = 0 })
	defer env.close()

	path, data := env.writeFile(t, "shared", 64*30)
	abs := mustAbs(t, path)
	fi, err := os.Stat(path)
	require.NoError(t, err)

	alg, _ := sha256.LookupAlgorithm("sha256")
	d := alg.New()
	d.Update(data[:640])
	require.NoError(t, env.store.Save(checkpoint.NewRecord(abs, fi, alg, d)))

	// a full sha224 run saves and deletes its own checkpoints only
	job, err := env.svc.Submit(context.Background(), Request{Path: path, Algorithm: "sha224"})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, sum224(data), res.Sum)

	r, err := env.store.Load("sha256", abs)
	require.NoError(t, err)
	assert.EqualValues(t, 640, r.Offset)
	_, err = env.store.Load("sha224", abs)
	assert.Equal(t, checkpoint.ErrNotFound, err)

	job, err = env.svc.Submit(context.Background(), Request{Path: path, Resume: true})
	require.NoError(t, err)
	res, err = job.Wait()
	require.NoError(t, err)
	assert.True(t, res.Resumed)
	assert.Equal(t, sum256(data), res.Sum)
}

func TestCancelLeavesCheckpoint(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Checkpoint.Interval = 64 })
	defer env.close()

	path, data := env.writeFile(t, "cancel", 64*100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setHook(func(n int) {
		if n == 10 {
			cancel()
		}
	})

	job, err := env.svc.Submit(ctx, Request{Path: path})
	require.NoError(t, err)
	_, err = job.Wait()
	require.Error(t, err)
	assert.EqualValues(t, errors.ErrJobCanceled, errors.Code(err))
	assert.True(t, errors.Is(err, context.Canceled))

	r, err := env.store.Load("sha256", mustAbs(t, path))
	require.NoError(t, err)
	assert.EqualValues(t, 640, r.Offset)

	setHook(nil)
	job, err = env.svc.Submit(context.Background(), Request{Path: path, Resume: true})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.True(t, res.Resumed)
	assert.Equal(t, sum256(data), res.Sum)
}

func mustAbs(t *testing.T, path string) string {
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return abs
}

func TestPeriodicCheckpoint(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Checkpoint.Interval = 256 })
	defer env.close()

	path, _ := env.writeFile(t, "periodic", 64*20)
	abs := mustAbs(t, path)

	var offsets []uint64
	setHook(func(n int) {
		// runs between Update calls of the job, before the next save
		if n%4 == 0 {
			if r, err := env.store.Load("sha256", abs); err == nil {
				offsets = append(offsets, r.Offset)
			}
		}
	})

	job, err := env.svc.Submit(context.Background(), Request{Path: path})
	require.NoError(t, err)
	_, err = job.Wait()
	require.NoError(t, err)

	require.NotEmpty(t, offsets)
	for _, off := range offsets {
		assert.EqualValues(t, 0, off%256, "offset %d", off)
	}
}

func TestSubmitErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	defer env.close()

	_, err := env.svc.Submit(context.Background(), Request{Path: env.dir, Algorithm: "md5"})
	assert.EqualValues(t, errors.ErrUnknownAlgorithm, errors.Code(err))

	job, err := env.svc.Submit(context.Background(), Request{Path: filepath.Join(env.dir, "missing")})
	require.NoError(t, err)
	_, err = job.Wait()
	assert.EqualValues(t, errors.ErrOpenFile, errors.Code(err))

	job, err = env.svc.Submit(context.Background(), Request{Path: env.dir})
	require.NoError(t, err)
	_, err = job.Wait()
	assert.EqualValues(t, errors.ErrOpenFile, errors.Code(err))

	path, data := env.writeFile(t, "ok", 10)
	results, err := env.svc.HashFiles(context.Background(), []Request{
		{Path: path},
		{Path: filepath.Join(env.dir, "missing")},
	})
	assert.EqualValues(t, errors.ErrOpenFile, errors.Code(err))
	require.Len(t, results, 2)
	assert.Equal(t, sum256(data), results[0].Sum)
	assert.Nil(t, results[1])

	require.NoError(t, env.svc.Stop())
	_, err = env.svc.Submit(context.Background(), Request{Path: path})
	assert.EqualValues(t, errors.ErrServiceStopped, errors.Code(err))
}

func TestWithoutCheckpointStore(t *testing.T) {
	logging.InitConsole(ioutil.Discard, logging.InfoLevel)
	cfg := config.DefaultConfig()
	cfg.Checkpoint.Disable = true
	require.NoError(t, config.CheckConfig(cfg))
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	assert.True(t, svc.PoolSize() > 0)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	dir, cleanup := testutil.TempDir(t, "massdigest-hasher")
	defer cleanup()
	path := filepath.Join(dir, "x")
	data := []byte("hello world\n")
	require.NoError(t, ioutil.WriteFile(path, data, 0600))

	job, err := svc.Submit(context.Background(), Request{Path: path, Resume: true})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447", res.Hex())
}

func TestNewServiceErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Hash.Algorithm = "md5"
	_, err := NewService(cfg, nil)
	assert.EqualValues(t, errors.ErrUnknownAlgorithm, errors.Code(err))

	cfg = config.DefaultConfig()
	cfg.Hash.Transform = "none"
	_, err = NewService(cfg, nil)
	assert.EqualValues(t, errors.ErrUnknownTransform, errors.Code(err))
}

func TestLargeFile(t *testing.T) {
	testutil.SkipCI(t)
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Hash.ReadBufferSize = config.DefaultReadBufferSize
		cfg.Hash.Transform = "generic"
		cfg.Checkpoint.Interval = 8 << 20
	})
	defer env.close()

	path, data := env.writeFile(t, "large", 96<<20+17)
	job, err := env.svc.Submit(context.Background(), Request{Path: path})
	require.NoError(t, err)
	res, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, sum256(data), res.Sum)
}
