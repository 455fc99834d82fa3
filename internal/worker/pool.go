package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult stands in for the result of a job that panicked
type PanicResult struct {
	Err error
}

// GetError returns the recovered panic as an error
func (r *PanicResult) GetError() error {
	return r.Err
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers. Every job is tagged with its
// submission index so Wait can return results in submission order no matter
// which worker finished first.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	submitted  int
	collected  map[int]Result
	collectorW sync.WaitGroup
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops workers from
// picking up further jobs.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		results:    make(chan indexedResult, workers*2),
		collected:  make(map[int]Result),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers and the result collector. Results are drained
// as they arrive so Submit never stalls on a full result channel.
func (p *Pool) Start() {
	p.collectorW.Add(1)
	go func() {
		defer p.collectorW.Done()
		for res := range p.results {
			p.collected[res.index] = res.result
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- indexedResult{index: item.index, result: p.execute(item.job)}
		}
	}
}

// execute runs one job; a panic becomes a PanicResult instead of killing the worker
func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &PanicResult{Err: fmt.Errorf("job panicked: %v", r)}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit queues a job and returns its index. Submit must not be called
// concurrently with Wait.
func (p *Pool) Submit(job Job) int {
	index := p.submitted
	p.submitted++

	select {
	case <-p.ctx.Done():
	case p.jobQueue <- indexedJob{index: index, job: job}:
	}
	return index
}

// Wait closes the queue, waits for the workers, and returns one slot per
// submitted job in submission order. Slots of jobs that never ran because
// the pool was cancelled are nil.
func (p *Pool) Wait() []Result {
	defer p.cancelFunc()

	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	p.collectorW.Wait()

	ordered := make([]Result, p.submitted)
	for index, result := range p.collected {
		ordered[index] = result
	}

	return ordered
}

// Shutdown cancels the pool and waits for running jobs to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	p.collectorW.Wait()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
