package concurrent

import (
	"context"
	"sync"
)

type Job[T any] struct {
	ID      int
	JobItem T
}

type JobFunc[T any, G any] func(ctx context.Context, job T) G

type JobResult[G any] struct {
	ID     int
	Result G
}

// WorkerPool runs a JobFunc over a fixed number of goroutines.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan JobResult[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, queueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], queueSize),
		results:    make(chan JobResult[G], queueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- JobResult[G]{ID: job.ID, Result: jobFunc(ctx, job.JobItem)}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

func (wp *WorkerPool[T, G]) AddJob(job Job[T]) {
	wp.jobQueue <- job
}

// Wait closes the job queue and closes the results channel once every worker is done.
func (wp *WorkerPool[T, G]) Wait() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan JobResult[G] {
	return wp.results
}

// RunJobs runs jobFunc over items on numWorkers goroutines and returns the results in item order.
func RunJobs[T any, G any](ctx context.Context, numWorkers int, items []T, jobFunc JobFunc[T, G]) []G {
	wp := NewWorkerPool[T, G](numWorkers, len(items))
	wp.Start(ctx, jobFunc)

	for i, item := range items {
		wp.AddJob(Job[T]{ID: i, JobItem: item})
	}
	wp.Wait()

	results := make([]G, len(items))
	for res := range wp.CollectResults() {
		results[res.ID] = res.Result
	}
	return results
}
