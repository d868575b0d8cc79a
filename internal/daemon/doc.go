// Package daemon is the composition root: it owns the instance lock, the
// store, and the lifecycle of the watcher, worker pool, batch orchestrator,
// event hub, and HTTP API.
package daemon
