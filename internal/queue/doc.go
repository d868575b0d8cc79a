// Package queue holds the bounded in-memory job queue and the worker pool
// that drains it. Jobs are processed in submission order up to the
// concurrency of the pool; a full queue rejects new work instead of
// blocking the caller.
package queue
