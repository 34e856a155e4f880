// Package worker runs per-layer batch jobs (settings replay, re-indexing)
// across many images in parallel.
package worker

import (
	"context"
	"sync"
	"time"
)

// Runner executes one job against a single (image, layer) pair.
type Runner interface {
	Run(ctx context.Context, image, layer string) error
}

// Task identifies one (image, layer) job.
type Task struct {
	Image string
	Layer string
}

// Result is the outcome of one task.
type Result struct {
	Task    Task
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config struct {
	Workers    int
	Runner     Runner
	OnProgress ProgressFunc
}

// Pool fans tasks out over a fixed number of workers. Each worker gets its
// own task stream; the runner must be safe for concurrent use across
// distinct (image, layer) pairs.
type Pool struct {
	workers    int
	runner     Runner
	onProgress ProgressFunc
}

// New creates a pool. Workers below 1 are clamped to 1.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:    workers,
		runner:     cfg.Runner,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and blocks until they complete or the context is
// cancelled. Cancelled tasks report ctx.Err() as their result.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
			}
		}
		close(taskCh)
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})
	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{Task: task, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		err := p.runner.Run(ctx, task.Image, task.Layer)
		results <- Result{
			Task:    task,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
