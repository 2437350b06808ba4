package hasher

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map"
)

// Request describes one file to hash. An empty Algorithm selects the
// configured default.
type Request struct {
	Path      string
	Algorithm string
	// Resume continues from a saved checkpoint of Path when one matches
	// the file.
	Resume bool
}

type Result struct {
	Path      string
	Algorithm string
	Sum       []byte
	Size      int64
	Resumed   bool
	Cached    bool
	Duration  time.Duration
}

func (r *Result) Hex() string {
	return hex.EncodeToString(r.Sum)
}

// Job is a submitted request. Wait blocks until it finished.
type Job struct {
	id      uuid.UUID
	req     Request
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	result  *Result
	err     error
	created time.Time
}

func newJob(ctx context.Context, req Request) *Job {
	ctx, cancel := context.WithCancel(ctx)
	return &Job{
		id:      uuid.New(),
		req:     req,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		created: time.Now(),
	}
}

func (j *Job) ID() uuid.UUID {
	return j.id
}

func (j *Job) Request() Request {
	return j.req
}

// Cancel stops the job before its next chunk. The checkpoint saved so far
// is kept.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Wait() (*Result, error) {
	<-j.done
	return j.result, j.err
}

func (j *Job) finish(res *Result, err error) {
	j.result, j.err = res, err
	j.cancel()
	close(j.done)
}

// JobMap is the table of running jobs keyed by job id.
type JobMap struct {
	m cmap.ConcurrentMap
}

func NewJobMap() *JobMap {
	return &JobMap{
		m: cmap.New(),
	}
}

func (m *JobMap) Get(id string) (*Job, bool) {
	v, ok := m.m.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Job), ok
}

func (m *JobMap) Set(job *Job) {
	m.m.Set(job.id.String(), job)
}

func (m *JobMap) Delete(id string) {
	m.m.Remove(id)
}

func (m *JobMap) Items() map[string]*Job {
	items := m.m.Items()
	jobs := make(map[string]*Job, len(items))
	for id, job := range items {
		jobs[id] = job.(*Job)
	}
	return jobs
}

func (m *JobMap) Count() int {
	return m.m.Count()
}
