// Package cache provides an instrumented caching facade over a key-value store.
//
// InstrumentedCache stores opaque scalar values under generated UUID keys and
// records, for each instrumented operation, a call counter and a paired
// input/output call history in the store itself. Instrumentation is a
// middleware chain (CountCalls, CallHistory, Observed) composed when the cache
// is constructed. Replay prints the recorded history of one operation.
//
// Backends: RedisBackend for a real Redis server and MemoryBackend for
// in-process use.
package cache
