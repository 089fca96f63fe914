// Package worker runs the polling pool that drains the job queue.
//
// Each worker goroutine claims pending jobs, rebuilds generation parameters
// from the job's meta JSON, and drives the pipeline orchestrator. Outcomes
// are classified into success, failure, or a transient requeue bounded by the
// configured attempt limit. A failing or panicking job never takes its
// worker down; the loop recovers, records the failure, and keeps polling.
//
// Stopping the pool is cooperative: the stop signal is observed between
// claims, never mid-job. Jobs interrupted by process death are reclaimed at
// the next daemon startup through the queue's stuck-job recovery.
package worker
