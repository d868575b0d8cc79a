// Package fsx abstracts the file-system operations the pipeline performs so
// tests can run against an in-memory fake without touching disk.
//
// The interface is deliberately narrow: enumerate, read, move, stat, and
// free-space. OS is the production implementation; MemFS is the fake.
package fsx
