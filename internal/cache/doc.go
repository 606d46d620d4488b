// Package cache provides an LRU cache for immutable byte blocks.
//
// Blocks are keyed by blob name and block index. Remote container reads
// go through it so repeated chunk and directory reads do not hit the
// backend again. Memory is charged to an optional resource controller.
package cache
