// Package dryrun executes a candidate permissions config against the
// live platform in read-only mode and reports the result back onto a
// pull request as a check run.
package dryrun

import (
	"github.com/gammazero/workerpool"
)

// Queue is the single-worker FIFO shared across every webhook delivery
// that triggers a dry run, so two PR updates in flight never race each
// other's subprocess or temp file. Grounded on
// presmihaylov-claudecontrol/examples/workerpool, which demonstrates
// workerpool.New(1) for exactly this strict-enqueue-order guarantee.
type Queue struct {
	wp *workerpool.WorkerPool
}

// NewQueue starts the single background worker. Callers should call
// Stop once during process shutdown after the HTTP listener has
// stopped accepting new connections, so any task already running is
// allowed to finish.
func NewQueue() *Queue {
	return &Queue{wp: workerpool.New(1)}
}

// Submit enqueues task. A panic inside task is recovered here, so the
// worker proceeds to the next queued task regardless; reporting the
// failure is left to the task's own error handling.
func (q *Queue) Submit(task func()) {
	q.wp.Submit(func() {
		defer func() { _ = recover() }()
		task()
	})
}

// Stop waits for the currently running task and every already-queued
// task to finish, then returns. No further Submit calls are accepted
// afterward.
func (q *Queue) Stop() {
	q.wp.StopWait()
}
