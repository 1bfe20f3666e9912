// Package session owns response aggregation for one command exchange.
//
// Ownership boundary:
// - final-kind selection per command class
// - auth-gated completion detection
// - wire traffic mirroring to an optional sink
//
// The package never dials, retries, or times out; it consumes an
// already-connected buffered stream and stops at the terminal frame.
package session
