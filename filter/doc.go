// Package filter defines the contract between the runtime and processing
// units.
//
// A [Filter] declares its [Parameters], describes its structural effects
// as an action batch in Preflight, and does its numeric work in Execute.
// [RunPreflight] and [RunExecute] drive one filter: they resolve
// arguments against the declared parameters, validate selections against
// the data structure and apply the preflight batch in the matching mode
// before the algorithm body runs.
//
// Long-running filters poll a [CancelFlag] at coarse granularity and
// report through a [MessageHandler]. A cancelled filter returns success
// with whatever it already applied.
package filter
