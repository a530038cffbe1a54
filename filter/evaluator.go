package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/octolist/octopus"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the chunk size below which evaluation stays sequential
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator applies filters to contacts, splitting large inputs
// into chunks evaluated in parallel
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Select returns the contacts matching filter in input order.
func (e *ConcurrentEvaluator) Select(ctx context.Context, filter CompiledFilter, contacts []*octopus.Contact) (Selection, error) {
	if len(contacts) == 0 {
		return Selection{}, nil
	}

	if len(contacts) < e.batchSize {
		return evaluateChunk(filter, contacts), ctx.Err()
	}

	return e.selectConcurrent(ctx, filter, contacts)
}

func (e *ConcurrentEvaluator) selectConcurrent(ctx context.Context, filter CompiledFilter, contacts []*octopus.Contact) (Selection, error) {
	chunkSize := max(len(contacts)/e.workerCount, e.batchSize)
	chunks := (len(contacts) + chunkSize - 1) / chunkSize
	results := make([]Selection, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	var mu sync.Mutex
	for i := range chunks {
		start := i * chunkSize
		chunk := contacts[start:min(start+chunkSize, len(contacts))]

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sel := evaluateChunk(filter, chunk)

			mu.Lock()
			results[i] = sel
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Selection{}, err
	}

	var out Selection
	for _, r := range results {
		out.Matches = append(out.Matches, r.Matches...)
		out.Errors = append(out.Errors, r.Errors...)
	}
	return out, nil
}

func evaluateChunk(filter CompiledFilter, contacts []*octopus.Contact) Selection {
	var sel Selection
	for _, c := range contacts {
		ok, err := filter.Evaluate(c)
		if err != nil {
			evalErr, isEval := err.(*EvaluationError)
			if !isEval {
				evalErr = &EvaluationError{
					Expression: filter.Expression(),
					Email:      c.EmailAddress().String(),
					Err:        err,
				}
			}
			sel.Errors = append(sel.Errors, evalErr)
			continue
		}
		if ok {
			sel.Matches = append(sel.Matches, c)
		}
	}
	return sel
}
