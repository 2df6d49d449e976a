// Package align regroups chunk streams so that the inputs of a plugin line up
// step by step.
//
// Rechunk changes chunk granularity without reordering records. AlignByKey
// syncs streams of different data kinds on a time key so that every step
// covers the same time span. AlignByLength syncs streams of the same data
// kind so that every step holds the same number of rows.
//
// The synced iterators returned for a group share state: pulling one of them
// may pull from every source. They are not safe for concurrent use by
// several goroutines pulling the same group at once; the streaming core pulls
// them from a single goroutine.
package align
