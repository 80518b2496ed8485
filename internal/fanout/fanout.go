// Package fanout runs independent provider calls concurrently and returns
// one typed outcome per call.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrIncomplete marks a task that had not finished when the context expired.
var ErrIncomplete = errors.New("task did not complete before the deadline")

// Task is one independent unit of work identified by Key.
type Task[K comparable, V any] struct {
	Key K
	Run func(ctx context.Context) (V, error)
}

// Outcome is the result of a Task. Exactly one of Value or Err is meaningful.
type Outcome[K comparable, V any] struct {
	Err      error
	Key      K
	Value    V
	Duration time.Duration
}

func (o Outcome[K, V]) OK() bool {
	return o.Err == nil
}

type indexed[K comparable, V any] struct {
	outcome Outcome[K, V]
	i       int
}

// Run executes tasks with at most limit running at once. A failing or
// panicking task never affects the others. When ctx expires, Run returns
// immediately and every unfinished task is reported with ErrIncomplete.
// Outcomes are returned in task order.
func Run[K comparable, V any](ctx context.Context, limit int, tasks []Task[K, V]) []Outcome[K, V] {
	outcomes := make([]Outcome[K, V], len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}
	if limit < 1 {
		limit = len(tasks)
	}

	sem := semaphore.NewWeighted(int64(limit))
	results := make(chan indexed[K, V], len(tasks))

	for i, task := range tasks {
		outcomes[i].Key = task.Key
		go runOne(ctx, sem, i, task, results)
	}

	done := make([]bool, len(tasks))
	for received := 0; received < len(tasks); {
		select {
		case r := <-results:
			outcomes[r.i] = r.outcome
			done[r.i] = true
			received++
		case <-ctx.Done():
			for i := range outcomes {
				if !done[i] {
					outcomes[i].Err = fmt.Errorf("%w: %v", ErrIncomplete, ctx.Err())
				}
			}
			return outcomes
		}
	}
	return outcomes
}

func runOne[K comparable, V any](ctx context.Context, sem *semaphore.Weighted, i int, task Task[K, V], results chan<- indexed[K, V]) {
	o := Outcome[K, V]{Key: task.Key}
	start := time.Now()

	if err := sem.Acquire(ctx, 1); err != nil {
		o.Err = fmt.Errorf("%w: %v", ErrIncomplete, err)
		results <- indexed[K, V]{i: i, outcome: o}
		return
	}
	defer sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Errorf("task %v panicked: %v", task.Key, r)
		}
		o.Duration = time.Since(start)
		results <- indexed[K, V]{i: i, outcome: o}
	}()

	o.Value, o.Err = task.Run(ctx)
}

// Failure names one failed task.
type Failure struct {
	Err error  `json:"-"`
	Key string `json:"key"`
	Msg string `json:"error"`
}

// PartialError reports the failed subset of a fan-out whose other tasks
// may have succeeded.
type PartialError struct {
	Failures []Failure
	Total    int
}

func (e *PartialError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Key+": "+f.Msg)
	}
	return fmt.Sprintf("%d of %d tasks failed: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the task errors to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// AllFailed reports whether no task succeeded.
func (e *PartialError) AllFailed() bool {
	return len(e.Failures) == e.Total
}

// Partial collects the failed outcomes into a PartialError, or returns nil
// when every task succeeded.
func Partial[K comparable, V any](outcomes []Outcome[K, V]) *PartialError {
	var failures []Failure
	for _, o := range outcomes {
		if o.Err != nil {
			failures = append(failures, Failure{Key: fmt.Sprint(o.Key), Err: o.Err, Msg: o.Err.Error()})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &PartialError{Failures: failures, Total: len(outcomes)}
}
