// Package textutil provides token-based text fingerprinting and similarity
// scoring.
//
// The primary use case is matching tokenized release filenames against known
// series titles: both sides become term-frequency vectors and are compared
// with cosine similarity, optionally IDF-weighted over the title corpus.
//
// Tokenization lowercases text, splits on non-alphanumeric characters, and
// filters single-character tokens so short title words survive.
package textutil
