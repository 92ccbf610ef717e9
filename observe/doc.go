// Package observe provides observability primitives for key-value store
// operations.
//
// It is a pure instrumentation library: tracing, metrics and structured
// logging around an operation, with exporter setup as the only I/O. The cache
// package wires it in as one layer of its middleware chain.
package observe
