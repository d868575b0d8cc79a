// Package watcher feeds the pipeline with files found in the watch
// folders, combining fsnotify events with a periodic scan behind a shared
// debounce.
package watcher
