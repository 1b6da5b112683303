// Package worker runs the classification workers that turn queued posts
// into drop decisions and hand positives to the drop sink.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/fragdrop/fragwatch/internal/adapters/mq/queue"
	"github.com/fragdrop/fragwatch/internal/domain/model"
	"github.com/fragdrop/fragwatch/pkg/logger"
	"github.com/fragdrop/fragwatch/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	workerShutdownTimeout   = 5 * time.Second
)

// Classifier scores a post. Implementations must be safe for concurrent
// use from every worker.
type Classifier interface {
	Classify(post model.SocialPost) model.DropDecision
}

// DropSink consumes positive decisions: persistence and notification
// dispatch live behind this interface.
type DropSink interface {
	HandleDrop(ctx context.Context, match model.Match) error
}

// Queue defines how workers receive posts.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Post
}

// Worker processes posts until stopped.
type Worker struct {
	queue      Queue
	classifier Classifier
	sink       DropSink
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a worker.
func New(q Queue, classifier Classifier, sink DropSink, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		classifier: classifier,
		sink:       sink,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop until ctx is cancelled, the queue closes, or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	posts := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case post, ok := <-posts:
			if !ok {
				return
			}
			if err := w.process(ctx, post); err != nil {
				w.logger.Error(ctx, "processing post failed",
					logger.String("postID", post.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight post.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, post queue.Post) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	decision := w.classifier.Classify(post)
	metrics.RecordPostScanned()

	switch {
	case decision.Explanation.Excluded:
		metrics.RecordPostExcluded()
		w.logger.Debug(ctx, "post excluded", logger.String("postID", post.ID))
		return nil
	case !decision.IsDrop:
		metrics.ObserveConfidence(decision.Confidence)
		w.logger.Debug(ctx, "not a drop",
			logger.String("postID", post.ID),
			logger.Float64("confidence", decision.Confidence),
		)
		return nil
	}

	metrics.RecordDropDetected(decision.Confidence)
	w.logger.Info(ctx, "drop detected",
		logger.String("postID", post.ID),
		logger.String("title", post.Title),
		logger.Float64("confidence", decision.Confidence),
	)

	if err := w.sink.HandleDrop(ctx, model.Match{Post: post, Decision: decision}); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "sink_error")
		return fmt.Errorf("handle drop %s: %w", post.ID, err)
	}
	return nil
}

// Pool manages a fixed set of workers over a shared queue.
type Pool struct {
	workers []*Worker
	queue   Queue

	logger logger.Logger
}

// NewPool creates and wires workerCount workers.
func NewPool(workerCount int, q Queue, classifier Classifier, sink DropSink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = New(q, classifier, sink, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "closing queue", logger.Error(err))
		}
	}

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(ctx, "worker did not stop in time", logger.String("worker", w.name))
		case <-ctx.Done():
			return fmt.Errorf("pool shutdown: %w", ctx.Err())
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
