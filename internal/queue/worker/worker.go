package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/writersinn/taskhub/internal/domain/job"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	LockTTL       time.Duration
}

type Worker struct {
	cfg  Config
	repo JobsRepository
	exec *Executor
	log  *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, exec *Executor, logger *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		cfg:  cfg,
		repo: repo,
		exec: exec,
		log:  logger,
	}
}

func (w *Worker) setReady(ready bool) {
	w.readyMu.Lock()
	w.ready = ready
	w.readyMu.Unlock()
}

// Run polls for ready jobs until ctx is cancelled. Each claimed job runs on
// its own goroutine, bounded by Concurrency. On shutdown, in-flight jobs get
// ShutdownGrace to finish.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	// a stale-lock sweep runs much less often than the claim poll
	sweep := time.NewTicker(w.cfg.LockTTL / 2)
	defer sweep.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return w.drain(&wg)

		case <-sweep.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)

			if err != nil {
				w.log.Error("stale requeue failed", "error", err)
			} else if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}

		case <-ticker.C:
			// drain the whole ready backlog before sleeping again
			for {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return w.drain(&wg)
				}

				claimed, err := w.dispatch(ctx, sem, &wg)

				if err != nil {
					<-sem
					w.log.Error("claim failed", "error", err)
					break
				}
				if !claimed {
					<-sem
					break
				}
			}
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) (claimed bool, err error) {
	j, err := w.claim(ctx)

	if err != nil {
		return false, err
	}
	if j == nil {
		return false, nil
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() { <-sem }()

		w.runOne(ctx, *j)
	}()

	return true, nil
}

func (w *Worker) drain(wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("worker drained cleanly")
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("shutdown grace expired with jobs still in flight")
		return nil
	}
}
