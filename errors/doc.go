// Package errors provides the structured error type used across kindflow.
//
// Every error raised by the streaming core carries a machine-readable code so
// callers can tell configuration problems (fatal, raised before any chunk
// flows) apart from programmer errors and runtime failures.
package errors
