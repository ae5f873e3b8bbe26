// Package inmemoryconn provides a thread-safe, in-memory implementation of
// the connstore.Store interface. Nets are derived lazily with a union-find
// pass over wire ends and cached until the next edit.
package inmemoryconn
