package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing a result of type R
type Job[R any] interface {
	Execute(ctx context.Context) R
}

// JobFunc adapts a function to Job
type JobFunc[R any] func(ctx context.Context) R

// Execute calls f
func (f JobFunc[R]) Execute(ctx context.Context) R {
	return f(ctx)
}

// Pool runs jobs on a fixed number of workers and collects their results
type Pool[R any] struct {
	workers    int
	jobQueue   chan Job[R]
	results    chan R
	collected  []R
	wg         sync.WaitGroup
	collectWG  sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	queueMu    sync.RWMutex
	queueDone  bool
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops new submissions;
// jobs already running see the cancelled context and finish on their own.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[R]{
		workers:    workers,
		jobQueue:   make(chan Job[R], workers),
		results:    make(chan R, workers),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool[R]) Start() {
	p.collectWG.Add(1)
	go func() {
		defer p.collectWG.Done()
		for result := range p.results {
			p.collected = append(p.collected, result)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.results <- job.Execute(p.ctx)
	}
}

// Submit queues a job. It returns false without queueing once the pool's context is done.
func (p *Pool[R]) Submit(job Job[R]) bool {
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()

	if p.queueDone || p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait stops accepting jobs, waits for queued jobs to finish and returns all results
func (p *Pool[R]) Wait() []R {
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
	p.cancelFunc()
	return p.collected
}

// Shutdown cancels the pool context and waits for in-flight jobs
func (p *Pool[R]) Shutdown() {
	p.cancelFunc()
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
}

func (p *Pool[R]) closeQueue() {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	if !p.queueDone {
		p.queueDone = true
		close(p.jobQueue)
	}
}

func (p *Pool[R]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Run executes jobs with bounded concurrency and returns results in job order.
// ok[i] is false for jobs that were never started because ctx ended first.
func Run[R any](ctx context.Context, workers int, jobs []Job[R]) (results []R, ok []bool) {
	pool := NewPool[indexed[R]](ctx, workers)
	pool.Start()

	for i, job := range jobs {
		idx, job := i, job
		if !pool.Submit(JobFunc[indexed[R]](func(ctx context.Context) indexed[R] {
			return indexed[R]{idx: idx, result: job.Execute(ctx)}
		})) {
			break
		}
	}

	results = make([]R, len(jobs))
	ok = make([]bool, len(jobs))
	for _, r := range pool.Wait() {
		results[r.idx] = r.result
		ok[r.idx] = true
	}
	return results, ok
}

type indexed[R any] struct {
	idx    int
	result R
}
