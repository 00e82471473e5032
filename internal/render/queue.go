package render

import (
	"context"
	"image"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-microbatch"
	"go.uber.org/zap"
)

// Job is one page render. The queue fills Image or Err.
type Job struct {
	Doc        Document
	DocKey     string // identity of Doc for caching, usually its source
	Generation uint64
	Page       int
	Scale      float64

	Image  image.Image
	Err    error
	Cached bool
}

// QueueOptions configures batching of render jobs
type QueueOptions struct {
	BatchSize     int
	FlushInterval time.Duration
	Concurrency   int
	// FailureRates bounds how often failures are logged per document
	FailureRates map[time.Duration]int
}

// DefaultQueueOptions returns the stock queue settings
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{
		BatchSize:     4,
		FlushInterval: 10 * time.Millisecond,
		Concurrency:   2,
		FailureRates: map[time.Duration]int{
			time.Second: 3,
			time.Minute: 20,
		},
	}
}

// Queue renders pages in small batches off the UI goroutine. Jobs are
// independent; completion order is unspecified.
type Queue struct {
	batcher *microbatch.Batcher[*Job]
	cache   *Cache
	limiter *catrate.Limiter
	log     *zap.Logger
}

// NewQueue creates a render queue. cache may be nil.
func NewQueue(opts QueueOptions, cache *Cache, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		cache: cache,
		log:   log,
	}
	if len(opts.FailureRates) > 0 {
		q.limiter = catrate.NewLimiter(opts.FailureRates)
	}
	q.batcher = microbatch.NewBatcher(&microbatch.BatcherConfig{
		MaxSize:        opts.BatchSize,
		FlushInterval:  opts.FlushInterval,
		MaxConcurrency: opts.Concurrency,
	}, q.process)
	return q
}

func (q *Queue) process(ctx context.Context, jobs []*Job) error {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			job.Err = err
			continue
		}
		q.run(ctx, job)
	}
	return nil
}

func (q *Queue) run(ctx context.Context, job *Job) {
	if q.cache != nil && job.DocKey != "" {
		if img, ok := q.cache.Get(job.DocKey, job.Page, job.Scale); ok {
			job.Image = img
			job.Cached = true
			return
		}
	}

	job.Image, job.Err = job.Doc.Render(ctx, job.Page, job.Scale)
	if job.Err != nil {
		q.logFailure(job)
		return
	}
	if q.cache != nil && job.DocKey != "" {
		q.cache.Put(job.DocKey, job.Page, job.Scale, job.Image)
	}
}

func (q *Queue) logFailure(job *Job) {
	if q.limiter != nil {
		if _, ok := q.limiter.Allow(job.DocKey); !ok {
			return
		}
	}
	q.log.Warn("page render failed",
		zap.String("document", job.DocKey),
		zap.Int("page", job.Page),
		zap.Float64("scale", job.Scale),
		zap.Error(job.Err))
}

// Submit schedules a job without waiting for it
func (q *Queue) Submit(ctx context.Context, job *Job) (*microbatch.JobResult[*Job], error) {
	return q.batcher.Submit(ctx, job)
}

// Render schedules a job and waits for it, returning the job's error
func (q *Queue) Render(ctx context.Context, job *Job) error {
	result, err := q.Submit(ctx, job)
	if err != nil {
		return err
	}
	if err := result.Wait(ctx); err != nil {
		return err
	}
	return result.Job.Err
}

// Close stops the queue, waiting for running batches
func (q *Queue) Close() error {
	return q.batcher.Shutdown(context.Background())
}
