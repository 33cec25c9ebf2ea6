// Package pipeline runs one producer, a fixed pool of workers and one sink
// connected by bounded channels. The number of workers only affects
// throughput: every item is processed independently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	"sync"
)

// Config tunes a pipeline run.
type Config struct {
	// Workers is the size of the worker pool; it must be positive.
	Workers int `toml:"workers"`
	// Buffer is the capacity of both channels; 0 means twice Workers.
	Buffer int `toml:"buffer"`
}

func (c Config) buffer() int {
	if c.Buffer > 0 {
		return c.Buffer
	}
	return 2 * c.Workers
}

// Error is a failure that stops the whole batch, as opposed to a per-item
// error that is handed to the sink with the item's result.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal wraps err so that returning it from a worker cancels the batch.
func Fatal(stage string, err error) error {
	return &Error{Stage: stage, Err: err}
}

// Producer sends every input item on out and returns. It must stop early
// when ctx is done.
type Producer[In any] func(ctx context.Context, out chan<- In) error

// Worker transforms one item. A returned *Error cancels the batch; any
// other error is passed to the sink together with the result.
type Worker[In, Out any] func(ctx context.Context, id int, item In) (Out, error)

// Sink consumes results one at a time, in completion order. Returning an
// error cancels the batch.
type Sink[Out any] func(ctx context.Context, result Out, err error) error

type result[Out any] struct {
	out Out
	err error
}

// Run connects produce, cfg.Workers copies of work, and sink. The input
// channel is closed after the last item, and the output channel only once
// every worker has returned. After cancellation workers finish their
// current item but nothing more reaches the sink. The first fatal error is
// returned.
func Run[In, Out any](ctx context.Context, cfg Config, produce Producer[In], work Worker[In, Out], sink Sink[Out]) error {
	if cfg.Workers < 1 {
		return xerrors.Errorf("pipeline needs at least one worker, got %d", cfg.Workers)
	}
	g, gctx := errgroup.WithContext(ctx)
	in := make(chan In, cfg.buffer())
	out := make(chan result[Out], cfg.buffer())

	g.Go(func() error {
		defer close(in)
		if err := produce(gctx, in); err != nil {
			return asFatal("producer", err)
		}
		return nil
	})

	var workers sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		id := i
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			n := 0
			for item := range in {
				if gctx.Err() != nil {
					return nil
				}
				o, err := work(gctx, id, item)
				var fatal *Error
				if errors.As(err, &fatal) {
					return fatal
				}
				if gctx.Err() != nil {
					return nil
				}
				select {
				case out <- result[Out]{out: o, err: err}:
					n++
				case <-gctx.Done():
					return nil
				}
			}
			log.Debug().Int("worker", id).Int("items", n).Msg("worker done")
			return nil
		})
	}
	g.Go(func() error {
		workers.Wait()
		close(out)
		return nil
	})

	g.Go(func() error {
		for r := range out {
			if gctx.Err() != nil {
				continue
			}
			if err := sink(gctx, r.out, r.err); err != nil {
				return asFatal("sink", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	// a parent cancellation that raced the last item is still a failure
	if err := ctx.Err(); err != nil {
		return asFatal("context", err)
	}
	return nil
}

func asFatal(stage string, err error) error {
	var fatal *Error
	if errors.As(err, &fatal) {
		return err
	}
	return &Error{Stage: stage, Err: err}
}

// Slice returns a producer that emits items in order.
func Slice[In any](items []In) Producer[In] {
	return func(ctx context.Context, out chan<- In) error {
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}
