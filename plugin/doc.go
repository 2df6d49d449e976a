// Package plugin runs plugins: computations that consume the chunk streams of
// one or more upstream outputs and produce one new output stream.
//
// A Plugin describes itself with a Descriptor and computes one output chunk
// from one aligned Batch of input chunks. Bind checks the descriptor against
// the resolved upstream Dependencies and returns an Instance; Instance.Iter
// wires the upstream iterators and streams results.
//
// Streaming an instance proceeds in three steps:
//
//  1. Classify groups the dependencies by data kind and puts a time-bearing
//     dependency first in every group.
//  2. The upstream iterators are aligned: an optional rechunk of the first
//     group's canonical dependency bounds batch size, canonical dependencies
//     of different kinds are synced on chunk endtime, and dependencies of the
//     same kind are synced to equal chunk lengths.
//  3. The executor pulls one chunk from every dependency in declared order,
//     computes, and yields the result, until any dependency is exhausted.
//
// LoopPlugin computes one output row per record of a base kind from the
// records of other kinds contained in it. MergePlugin concatenates the fields
// of same-kind dependencies. Placeholder stands in for outputs supplied from
// outside the graph.
package plugin
