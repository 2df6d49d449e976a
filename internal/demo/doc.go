// Package demo holds a small peak-finding chain used by the kindflow command
// and its tests: records -> peaks -> events, with per-peak classification
// merged back onto peaks and per-event sums computed over contained peaks.
package demo
