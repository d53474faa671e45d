// Package pebblestore provides a thin wrapper around Pebble with an explicit
// fsync policy. Checkpoint writes default to syncing the WAL on every commit:
// a tracking token acknowledged to the caller must survive a crash.
package pebblestore
