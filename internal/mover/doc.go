// Package mover executes validated file moves into the library.
//
// A move renames within a volume and falls back to a verified stream copy
// plus source delete across volumes. Sibling files sharing the primary's
// basename (subtitles, artwork, nfo) follow the primary under its possibly
// conflict-resolved new name; a sibling failure degrades to a warning on the
// receipt instead of failing the move.
package mover
