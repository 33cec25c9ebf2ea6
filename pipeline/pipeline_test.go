package pipeline

import (
	"context"
	"errors"
	qt "github.com/frankban/quicktest"
	"sort"
	"sync/atomic"
	"testing"
)

func square(_ context.Context, _ int, x int) (int, error) {
	if x < 0 {
		return 0, errors.New("negative")
	}
	return x * x, nil
}

func collect(t *testing.T, workers int, items []int) ([]int, int) {
	var got []int
	failed := 0
	err := Run(context.Background(), Config{Workers: workers}, Slice(items), square,
		func(_ context.Context, out int, err error) error {
			if err != nil {
				failed++
				return nil
			}
			got = append(got, out)
			return nil
		})
	qt.Assert(t, err, qt.IsNil)
	sort.Ints(got)
	return got, failed
}

func TestRunSameResultForAnyWorkerCount(t *testing.T) {
	c := qt.New(t)
	items := make([]int, 100)
	for i := range items {
		items[i] = i - 10
	}
	want, wantFailed := collect(t, 1, items)
	c.Assert(want, qt.HasLen, 90)
	c.Assert(wantFailed, qt.Equals, 10)

	for _, n := range []int{2, 4, 16} {
		got, failed := collect(t, n, items)
		c.Assert(got, qt.DeepEquals, want, qt.Commentf("workers %d", n))
		c.Assert(failed, qt.Equals, wantFailed)
	}
}

func TestRunRejectsNoWorkers(t *testing.T) {
	c := qt.New(t)
	err := Run(context.Background(), Config{}, Slice([]int{1}), square,
		func(context.Context, int, error) error { return nil })
	c.Assert(err, qt.ErrorMatches, "pipeline needs at least one worker.*")
}

func TestRunFatalWorkerError(t *testing.T) {
	c := qt.New(t)
	items := make([]int, 1000)
	var processed atomic.Int64
	boom := errors.New("boom")
	work := func(_ context.Context, _ int, x int) (int, error) {
		processed.Add(1)
		if x == 10 {
			return 0, Fatal("worker", boom)
		}
		return x, nil
	}
	items[10] = 10
	for i := range items {
		if i != 10 {
			items[i] = 1
		}
	}
	err := Run(context.Background(), Config{Workers: 4, Buffer: 1}, Slice(items), work,
		func(context.Context, int, error) error { return nil })

	var perr *Error
	c.Assert(errors.As(err, &perr), qt.IsTrue)
	c.Assert(perr.Stage, qt.Equals, "worker")
	c.Assert(errors.Is(err, boom), qt.IsTrue)
	c.Assert(processed.Load() < int64(len(items)), qt.IsTrue)
}

func TestRunSinkError(t *testing.T) {
	c := qt.New(t)
	items := make([]int, 100)
	sinkErr := errors.New("disk full")
	written := 0
	err := Run(context.Background(), Config{Workers: 3}, Slice(items), square,
		func(context.Context, int, error) error {
			if written == 5 {
				return sinkErr
			}
			written++
			return nil
		})
	c.Assert(errors.Is(err, sinkErr), qt.IsTrue)
	c.Assert(written, qt.Equals, 5)

	var perr *Error
	c.Assert(errors.As(err, &perr), qt.IsTrue)
	c.Assert(perr.Stage, qt.Equals, "sink")
}

func TestRunProducerError(t *testing.T) {
	c := qt.New(t)
	broken := errors.New("unreadable ballot file")
	produce := func(ctx context.Context, out chan<- int) error {
		out <- 1
		return broken
	}
	err := Run(context.Background(), Config{Workers: 2}, produce, square,
		func(context.Context, int, error) error { return nil })
	c.Assert(errors.Is(err, broken), qt.IsTrue)
}

func TestRunParentCancelled(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, Config{Workers: 2}, Slice(make([]int, 10)), square,
		func(context.Context, int, error) error { return nil })
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)
}
