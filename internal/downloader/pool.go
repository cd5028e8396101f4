package downloader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/logger"
	"ptscraper/pkg/ratelimit"
	"ptscraper/pkg/retry"
	"ptscraper/pkg/storage"
)

// DefaultMaxRounds is how many times a job may go through the queue
const DefaultMaxRounds = 5

// Fetcher retrieves the body at url. Each worker owns exactly one.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Address() string
}

// Job is one download: fetch Source, write it to Destination
type Job struct {
	Source      string
	Destination string
}

// Failure is a job that used up its round budget
type Failure struct {
	Job    Job
	Rounds int
	Err    error
}

// Report is the outcome of one Submit call
type Report struct {
	Succeeded []Job
	Failed    []Failure
	// Content holds fetched bodies keyed by destination, only when RetainContent is set
	Content map[string][]byte
	Bytes   int64
}

// Options tunes the downloader
type Options struct {
	// MaxRounds bounds how often a job is requeued after its retries are exhausted
	MaxRounds int
	// Retry is the per-round fetch policy
	Retry *retry.Config
	// RequestsPerMinute paces each worker; zero disables pacing
	RequestsPerMinute int
	// RetainContent keeps fetched bodies in the report
	RetainContent bool
	// OnProgress is called after each job settles
	OnProgress func(done, total int)
	// Write persists a fetched body; defaults to storage.WriteFile
	Write func(path string, data []byte) error
}

// Downloader drains a job queue with one worker per fetcher
type Downloader struct {
	fetchers  []Fetcher
	opts      Options
	logger    logger.Logger
	remaining atomic.Int64
}

type task struct {
	job    Job
	rounds int
}

// New creates a downloader over the given fetchers
func New(fetchers []Fetcher, opts Options, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
		opts.Retry.Logger = log
	}
	if opts.Write == nil {
		opts.Write = storage.WriteFile
	}
	return &Downloader{fetchers: fetchers, opts: opts, logger: log}
}

// Workers returns the number of workers a Submit call runs
func (d *Downloader) Workers() int {
	return len(d.fetchers)
}

// Remaining returns the number of jobs of the running Submit call not yet settled
func (d *Downloader) Remaining() int {
	return int(d.remaining.Load())
}

// Submit runs every job to a terminal state: written to disk, or failed after
// MaxRounds passes through the queue. It returns early only when ctx is
// cancelled or a destination cannot be written, the latter as a PersistenceError.
func (d *Downloader) Submit(ctx context.Context, jobs []Job) (*Report, error) {
	report := &Report{}
	if d.opts.RetainContent {
		report.Content = make(map[string][]byte, len(jobs))
	}
	if len(jobs) == 0 {
		return report, nil
	}
	if len(d.fetchers) == 0 {
		return report, errs.ErrNoValidProxies
	}

	total := len(jobs)
	queue := make(chan task, total)
	for _, job := range jobs {
		queue <- task{job: job}
	}

	var (
		pending  atomic.Int64
		mu       sync.Mutex
		fatalErr error
		wg       sync.WaitGroup
	)
	pending.Store(int64(total))
	d.remaining.Store(int64(total))
	done := make(chan struct{})

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	settle := func() {
		left := d.remaining.Add(-1)
		if d.opts.OnProgress != nil {
			d.opts.OnProgress(total-int(left), total)
		}
		if pending.Add(-1) == 0 {
			close(done)
		}
	}

	d.logger.InfoWithFields("Starting downloader", map[string]interface{}{
		"jobs":    total,
		"workers": len(d.fetchers),
	})

	for i, f := range d.fetchers {
		wg.Add(1)
		go func(id int, f Fetcher) {
			defer wg.Done()
			limiter := ratelimit.New(d.opts.RequestsPerMinute)
			log := d.logger.WithFields(map[string]interface{}{
				"worker_id": id,
				"proxy":     f.Address(),
			})

			for {
				var t task
				select {
				case <-done:
					return
				case <-workCtx.Done():
					return
				case t = <-queue:
				}

				if err := limiter.Wait(workCtx); err != nil {
					return
				}

				body, err := fetch(workCtx, f, t.job.Source, d.opts.Retry)
				if err != nil {
					if workCtx.Err() != nil {
						return
					}
					t.rounds++
					if t.rounds >= d.opts.MaxRounds {
						logger.LogJobFailure(log, t.job.Source, t.job.Destination, t.rounds, true, err)
						mu.Lock()
						report.Failed = append(report.Failed, Failure{
							Job:    t.job,
							Rounds: t.rounds,
							Err:    fmt.Errorf("%w after %d rounds: %w", errs.ErrPermanentlyFailed, t.rounds, err),
						})
						mu.Unlock()
						settle()
						continue
					}
					logger.LogJobFailure(log, t.job.Source, t.job.Destination, t.rounds, false, err)
					// capacity equals the job count, so this never blocks
					queue <- t
					continue
				}

				if err := d.opts.Write(t.job.Destination, body); err != nil {
					mu.Lock()
					if fatalErr == nil {
						fatalErr = errs.Persistence(fmt.Sprintf("failed to write %s", t.job.Destination), err)
					}
					mu.Unlock()
					cancel()
					return
				}

				mu.Lock()
				report.Succeeded = append(report.Succeeded, t.job)
				report.Bytes += int64(len(body))
				if report.Content != nil {
					report.Content[t.job.Destination] = body
				}
				mu.Unlock()

				log.DebugWithFields("Job completed", map[string]interface{}{
					"source": t.job.Source,
					"size":   len(body),
				})
				settle()
			}
		}(i, f)
	}

	wg.Wait()

	if fatalErr != nil {
		return report, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	d.logger.InfoWithFields("Downloader finished", map[string]interface{}{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
		"bytes":     report.Bytes,
	})
	return report, nil
}

// FetchOne fetches a single job through one fetcher with the retry policy and
// writes the result. Used where parallelism buys nothing.
func FetchOne(ctx context.Context, f Fetcher, job Job, policy *retry.Config) ([]byte, error) {
	body, err := fetch(ctx, f, job.Source, policy)
	if err != nil {
		return nil, err
	}
	if err := storage.WriteFile(job.Destination, body); err != nil {
		return nil, errs.Persistence(fmt.Sprintf("failed to write %s", job.Destination), err)
	}
	return body, nil
}

func fetch(ctx context.Context, f Fetcher, url string, policy *retry.Config) ([]byte, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
		return f.Fetch(ctx, url)
	}, policy)
}
