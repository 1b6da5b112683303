package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/fragdrop/fragwatch/internal/adapters/mq/queue"
	"github.com/fragdrop/fragwatch/internal/adapters/mq/worker"
	"github.com/fragdrop/fragwatch/internal/domain/model"
	"github.com/fragdrop/fragwatch/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// thresholdClassifier marks every post whose title is "drop" as a drop.
type thresholdClassifier struct{}

func (thresholdClassifier) Classify(post model.SocialPost) model.DropDecision {
	if post.Title == "drop" {
		return model.DropDecision{IsDrop: true, Confidence: 0.9}
	}
	if post.Title == "excluded" {
		return model.DropDecision{Explanation: model.Explanation{Excluded: true}}
	}
	return model.DropDecision{Confidence: 0.1}
}

// recordingSink collects handled matches.
type recordingSink struct {
	mu      sync.Mutex
	matches []model.Match
	err     error
}

func (s *recordingSink) HandleDrop(_ context.Context, match model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.matches = append(s.matches, match)
	return nil
}

func (s *recordingSink) handled() []model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Match(nil), s.matches...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over a post queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		sink := &recordingSink{}
		w := worker.New(q, thresholdClassifier{}, sink, worker.WithName("test-worker"))

		go w.Run(ctx)

		Convey("When a drop post is queued", func() {
			q.Enqueue(ctx, model.SocialPost{ID: "p1", Title: "drop"})

			Convey("Then the sink receives the match", func() {
				So(waitFor(func() bool { return len(sink.handled()) == 1 }), ShouldBeTrue)
				So(sink.handled()[0].Post.ID, ShouldEqual, "p1")
				So(sink.handled()[0].Decision.Confidence, ShouldEqual, 0.9)
			})
		})

		Convey("When excluded and low-confidence posts are queued", func() {
			q.Enqueue(ctx, model.SocialPost{ID: "p2", Title: "excluded"})
			q.Enqueue(ctx, model.SocialPost{ID: "p3", Title: "chatter"})
			q.Enqueue(ctx, model.SocialPost{ID: "p4", Title: "drop"})

			Convey("Then only the drop reaches the sink", func() {
				So(waitFor(func() bool { return len(sink.handled()) == 1 }), ShouldBeTrue)
				So(sink.handled()[0].Post.ID, ShouldEqual, "p4")
			})
		})

		Convey("When the sink fails", func() {
			sink.err = errors.New("boom")
			q.Enqueue(ctx, model.SocialPost{ID: "p5", Title: "drop"})
			q.Enqueue(ctx, model.SocialPost{ID: "p6", Title: "chatter"})

			Convey("Then the worker keeps running", func() {
				So(waitFor(func() bool { return q.Len(ctx) == 0 }), ShouldBeTrue)
				So(sink.handled(), ShouldBeEmpty)
			})
		})

		Reset(func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			_ = w.Shutdown(shutdownCtx)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		sink := &recordingSink{}
		p := worker.NewPool(4, q, thresholdClassifier{}, sink)
		p.Start(ctx)

		Convey("When many drop posts are queued", func() {
			for i := 0; i < 20; i++ {
				q.Enqueue(ctx, model.SocialPost{ID: string(rune('a' + i)), Title: "drop"})
			}

			Convey("Then every post is handled exactly once", func() {
				So(waitFor(func() bool { return len(sink.handled()) == 20 }), ShouldBeTrue)
			})
		})

		Convey("When the pool shuts down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			Convey("Then shutdown drains and returns cleanly", func() {
				So(p.Shutdown(shutdownCtx), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}
