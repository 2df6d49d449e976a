// Package cli implements the kindflow command: run streams the demo chain
// over synthetic records, graph prints the dependency levels of a target and
// version reports the build.
package cli
