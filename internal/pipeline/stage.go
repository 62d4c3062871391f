package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gridguard/leop-server/internal/adapter/observability"
)

// Transform turns one item into the next stage's item. Returning false
// short-circuits: nothing is forwarded downstream.
type Transform[In, Out any] func(ctx context.Context, item In) (Out, bool)

// Stage runs a fixed pool of workers that pop from in, apply the
// transform, and push to out. When in drains after close, the workers
// exit and out is closed, cascading shutdown downstream. A terminal
// stage has a nil out queue.
type Stage[In, Out any] struct {
	name    string
	in      *Queue[In]
	out     *Queue[Out]
	workers int
	fn      Transform[In, Out]
	done    chan struct{}
}

// NewStage wires a stage between in and out. out may be nil for the
// terminal stage.
func NewStage[In, Out any](name string, in *Queue[In], out *Queue[Out], workers int, fn Transform[In, Out]) *Stage[In, Out] {
	return &Stage[In, Out]{
		name:    name,
		in:      in,
		out:     out,
		workers: workers,
		fn:      fn,
		done:    make(chan struct{}),
	}
}

// Start launches the worker pool. Workers run until the input queue is
// closed and drained.
func (s *Stage[In, Out]) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func(id int) {
			defer wg.Done()
			s.run(ctx, id)
		}(i)
	}
	go func() {
		wg.Wait()
		if s.out != nil {
			s.out.Close()
		}
		close(s.done)
	}()
}

// Wait blocks until every worker has exited and the output queue (if
// any) is closed.
func (s *Stage[In, Out]) Wait() {
	<-s.done
}

func (s *Stage[In, Out]) run(ctx context.Context, id int) {
	slog.Debug("stage worker started", slog.String("stage", s.name), slog.Int("worker", id))
	for {
		item, err := s.in.Pop()
		if err != nil {
			slog.Debug("stage worker exiting", slog.String("stage", s.name), slog.Int("worker", id))
			return
		}
		s.process(ctx, item)
	}
}

// process isolates one item so a panicking transform takes down neither
// the worker nor its siblings.
func (s *Stage[In, Out]) process(ctx context.Context, item In) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stage worker recovered from panic",
				slog.String("stage", s.name), slog.Any("panic", r))
		}
	}()

	ctx, span := otel.Tracer("pipeline").Start(ctx, "pipeline."+s.name)
	span.SetAttributes(attribute.String("stage", s.name))
	defer span.End()

	start := time.Now()
	out, ok := s.fn(ctx, item)
	observability.StageDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

	if !ok || s.out == nil {
		return
	}
	if err := s.out.Push(out); err != nil {
		slog.Warn("stage output dropped during shutdown", slog.String("stage", s.name))
	}
}
