// Package events carries the outbound event contract: every notable pipeline
// occurrence is published as an Event to the registered sinks.
//
// Delivery is at-least-once and fire-and-forget; sinks must tolerate
// redelivery. The Hub decouples publishers from sinks with a buffered
// channel so a slow webhook never stalls a worker.
package events
