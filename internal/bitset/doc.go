// Package bitset provides a fixed-length, packed bit vector with atomic
// per-bit updates.
//
// Bits live in []atomic.Uint64 words, so concurrent Set/Unset calls on
// distinct indices are safe even when they share a word. This is what lets
// boolean arrays be written from several parallel ranges at once while still
// using one bit per element in memory.
//
// Resizing is not concurrent-safe: Resize returns a new BitSet and the caller
// swaps it in.
package bitset
