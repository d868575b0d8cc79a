// Package batch runs organize operations over many files at once with
// bounded parallelism, progress events, and cooperative cancellation.
package batch
