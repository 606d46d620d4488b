// Package conv provides checked integer conversions.
//
// Container files carry shapes, offsets and lengths as fixed-width unsigned
// integers while the in-memory model uses int. Every crossing between the
// two goes through this package so that corrupt or hostile headers surface as
// errors instead of silently wrapping.
package conv
