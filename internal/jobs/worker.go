package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/finsight/internal/logger"
)

// JobProcessor is one unit of recurring background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
	log       *zap.SugaredLogger
}

func NewWorker(processor JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       logger.Named("worker"),
	}
}

// Start runs the processor once right away and then on every tick. It
// blocks until the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	w.log.Infow("worker started", "poll_interval", w.interval)
	w.process(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped: context cancelled")
			return
		case <-w.stop:
			w.log.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Worker) process(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.log.Errorw("error processing jobs", "error", err)
	}
}

// Stop signals the loop and waits for it to drain.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
	w.log.Info("worker shutdown complete")
}
