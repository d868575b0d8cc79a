// Package tokenizer turns release filenames into series tokens, episode
// numbering, and quality hints. It is a pure function over the filename
// string: deterministic, no I/O, no configuration beyond the minimum token
// length.
package tokenizer
