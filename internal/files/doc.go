// Package files implements the tracked-file state machine.
//
// Every operation is one unit-of-work commit: load the row, check the
// transition against the lifecycle graph, mutate, append a processing log,
// commit. Illegal transitions surface as typed errors and commit conflicts
// are retried once before being handed back to the caller.
package files
