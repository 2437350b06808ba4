// Package hasher computes file digests on a worker pool. Long files are
// checkpointed periodically so an interrupted job can be resumed.
package hasher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants"
	pkgerrors "github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
	"massnet.org/massdigest/checkpoint"
	"massnet.org/massdigest/config"
	"massnet.org/massdigest/crypto/sha256"
	"massnet.org/massdigest/errors"
	"massnet.org/massdigest/logging"
	"massnet.org/massdigest/massutil/ccache"
	"massnet.org/massdigest/massutil/service"
)

const ServiceName = "hasher"

type Service struct {
	*service.BaseService
	algorithm string
	transform sha256.Transform
	bufSize   int
	interval  uint64
	poolSize  int
	store     *checkpoint.Store // nil when checkpoints are disabled
	cache     *ccache.SumCache  // nil when caching is disabled
	pool      *ants.Pool
	jobs      *JobMap
	wg        sync.WaitGroup
}

// NewService builds a hasher from a checked config. store may be nil.
func NewService(cfg *config.Config, store *checkpoint.Store) (*Service, error) {
	if _, err := sha256.LookupAlgorithm(cfg.Hash.Algorithm); err != nil {
		return nil, errors.New(errors.ErrUnknownAlgorithm, err)
	}
	transform, err := sha256.LookupTransform(cfg.Hash.Transform)
	if err != nil {
		return nil, errors.New(errors.ErrUnknownTransform, err)
	}
	s := &Service{
		algorithm: cfg.Hash.Algorithm,
		transform: transform,
		bufSize:   cfg.Hash.ReadBufferSize,
		interval:  cfg.Checkpoint.Interval,
		poolSize:  cfg.Worker.PoolSize,
		store:     store,
		jobs:      NewJobMap(),
	}
	if s.poolSize == 0 {
		s.poolSize = defaultPoolSize()
	}
	if cfg.Hash.CacheSize > 0 {
		s.cache = ccache.NewSumCache(cfg.Hash.CacheSize)
	}
	s.BaseService = service.NewBaseService(s, ServiceName)
	return s, nil
}

func defaultPoolSize() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		logging.CPrint(logging.WARN, "fail to count cpus", logging.LogFormat{"err": err})
		return runtime.NumCPU()
	}
	return n
}

func (s *Service) OnStart() error {
	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return err
	}
	s.pool = pool
	logging.CPrint(logging.INFO, "hash worker pool created", logging.LogFormat{
		"size":       s.poolSize,
		"algorithm":  s.algorithm,
		"transform":  s.transform.Name(),
		"checkpoint": s.store != nil,
	})
	return nil
}

// OnStop cancels every running job and waits for the workers.
func (s *Service) OnStop() error {
	for _, job := range s.jobs.Items() {
		job.Cancel()
	}
	s.wg.Wait()
	s.pool.Release()
	return nil
}

func (s *Service) PoolSize() int {
	return s.poolSize
}

func (s *Service) Running() int {
	return s.jobs.Count()
}

// Job returns a running job by id.
func (s *Service) Job(id string) (*Job, bool) {
	return s.jobs.Get(id)
}

// Submit queues req and returns immediately unless every worker is busy,
// in which case it blocks until one is free.
func (s *Service) Submit(ctx context.Context, req Request) (*Job, error) {
	if !s.Started() {
		return nil, errors.New(errors.ErrServiceStopped, nil)
	}
	if req.Algorithm == "" {
		req.Algorithm = s.algorithm
	}
	if _, err := sha256.LookupAlgorithm(req.Algorithm); err != nil {
		return nil, errors.New(errors.ErrUnknownAlgorithm, pkgerrors.Wrapf(err, "algorithm %q", req.Algorithm))
	}

	job := newJob(ctx, req)
	s.jobs.Set(job)
	s.wg.Add(1)
	if err := s.pool.Submit(func() {
		s.run(job)
	}); err != nil {
		s.jobs.Delete(job.id.String())
		s.wg.Done()
		job.cancel()
		return nil, errors.New(errors.ErrPoolOverload, err)
	}
	return job, nil
}

// HashFiles submits reqs and waits for all of them. results[i] belongs to
// reqs[i] and is nil when that job failed; the first failure is returned.
func (s *Service) HashFiles(ctx context.Context, reqs []Request) ([]*Result, error) {
	jobs := make([]*Job, len(reqs))
	var firstErr error
	for i, req := range reqs {
		job, err := s.Submit(ctx, req)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		jobs[i] = job
	}

	results := make([]*Result, len(reqs))
	for i, job := range jobs {
		if job == nil {
			continue
		}
		res, err := job.Wait()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results[i] = res
	}
	return results, firstErr
}

func (s *Service) run(job *Job) {
	defer s.wg.Done()
	defer s.jobs.Delete(job.id.String())

	logging.VPrint(logging.DEBUG, "hash job started", logging.LogFormat{
		"id":   job.id,
		"path": job.req.Path,
	})
	res, err := s.hashFile(job.ctx, job.req)
	if err != nil {
		logging.CPrint(logging.ERROR, "hash job failed", logging.LogFormat{
			"id":   job.id,
			"path": job.req.Path,
			"err":  err,
		})
	} else {
		logging.CPrint(logging.INFO, "hash job finished", logging.LogFormat{
			"id":       job.id,
			"path":     res.Path,
			"size":     res.Size,
			"resumed":  res.Resumed,
			"cached":   res.Cached,
			"duration": res.Duration,
		})
	}
	job.finish(res, err)
}

func (s *Service) hashFile(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	alg, err := sha256.LookupAlgorithm(req.Algorithm)
	if err != nil {
		return nil, errors.New(errors.ErrUnknownAlgorithm, err)
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, errors.New(errors.ErrInvalidParameter, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ErrOpenFile, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.New(errors.ErrStatFile, err)
	}
	if fi.IsDir() {
		return nil, errors.New(errors.ErrOpenFile, pkgerrors.Errorf("%s is a directory", req.Path))
	}

	res := &Result{Path: req.Path, Algorithm: alg.Name, Size: fi.Size()}
	key := ccache.NewKey(path, alg.Name, fi.Size(), fi.ModTime())
	if s.cache != nil {
		if sum, ok := s.cache.Get(key); ok {
			res.Sum, res.Cached = sum, true
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	d := alg.New(sha256.WithTransform(s.transform))
	if req.Resume && s.store != nil {
		if resumed := s.restore(path, fi, alg); resumed != nil {
			if _, err := f.Seek(int64(resumed.Len()), io.SeekStart); err != nil {
				return nil, errors.New(errors.ErrReadFile, err)
			}
			d, res.Resumed = resumed, true
		}
	}

	buf := make([]byte, s.bufSize)
	var unsaved uint64
	for {
		select {
		case <-ctx.Done():
			s.save(path, fi, alg, d)
			return nil, errors.New(errors.ErrJobCanceled, ctx.Err())
		default:
		}

		n, err := io.ReadFull(f, buf)
		if n > 0 {
			d.Update(buf[:n])
			unsaved += uint64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			s.save(path, fi, alg, d)
			return nil, errors.New(errors.ErrReadFile, err)
		}
		if s.store != nil && unsaved >= s.interval {
			s.save(path, fi, alg, d)
			unsaved = 0
		}
	}

	if d.Len() != uint64(fi.Size()) {
		logging.CPrint(logging.WARN, "file size changed while hashing", logging.LogFormat{
			"path":   req.Path,
			"stat":   fi.Size(),
			"hashed": d.Len(),
		})
		res.Size = int64(d.Len())
	}
	res.Sum = d.Final()
	res.Duration = time.Since(start)

	if s.store != nil {
		s.discard(path, alg)
	}
	if s.cache != nil {
		s.cache.Add(key, res.Sum)
	}
	return res, nil
}

// restore returns the digest saved for path, or nil when there is no usable
// checkpoint. Unusable checkpoints are removed.
func (s *Service) restore(path string, fi os.FileInfo, alg sha256.Algorithm) *sha256.Digest {
	r, err := s.store.Load(alg.Name, path)
	if err == checkpoint.ErrNotFound {
		return nil
	}
	if err != nil {
		logging.CPrint(logging.WARN, "discard unreadable checkpoint", logging.LogFormat{
			"path":      path,
			"algorithm": alg.Name,
			"err":       err,
		})
		s.discard(path, alg)
		return nil
	}
	if !r.Matches(fi) {
		err = checkpoint.ErrStale
	}
	var d *sha256.Digest
	if err == nil {
		d, err = r.Restore(sha256.WithTransform(s.transform))
	}
	if err != nil {
		logging.CPrint(logging.WARN, "discard checkpoint", logging.LogFormat{
			"path":      path,
			"algorithm": r.Algorithm,
			"offset":    r.Offset,
			"err":       err,
		})
		s.discard(path, alg)
		return nil
	}
	logging.CPrint(logging.INFO, "resume from checkpoint", logging.LogFormat{
		"path":      path,
		"algorithm": r.Algorithm,
		"offset":    r.Offset,
	})
	return d
}

func (s *Service) discard(path string, alg sha256.Algorithm) {
	if err := s.store.Delete(alg.Name, path); err != nil {
		logging.CPrint(logging.WARN, "fail to delete checkpoint", logging.LogFormat{"path": path, "algorithm": alg.Name, "err": err})
	}
}

func (s *Service) save(path string, fi os.FileInfo, alg sha256.Algorithm, d *sha256.Digest) {
	if s.store == nil || d.Len() == 0 {
		return
	}
	if err := s.store.Save(checkpoint.NewRecord(path, fi, alg, d)); err != nil {
		logging.CPrint(logging.WARN, "fail to save checkpoint", logging.LogFormat{"path": path, "err": err})
	}
}
