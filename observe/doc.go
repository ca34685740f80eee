// Package observe provides observability primitives for the siesta request
// and cache layers.
//
// It is a pure instrumentation library: no transport, no caching, no I/O
// beyond exporter setup. The request and cache packages accept its Logger,
// Metrics, and Tracer through options and default to no-op implementations.
package observe
