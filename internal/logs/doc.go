// Package logs tails the daemon log file with bounded memory. Negative
// offsets read the last N lines; follow mode polls for new lines until the
// wait budget or context runs out. The CLI log command and the IPC LogTail
// call both go through here so offsets behave the same everywhere.
package logs
