// Package arena provides a slot map addressed by generation-checked
// references.
//
// Values live in a dense slice of slots. Removing a value bumps its slot's
// generation, so a [Ref] held after removal no longer resolves. A slot
// whose generation would wrap is retired, which guarantees that no Ref is
// ever issued twice.
//
// The zero Ref never resolves and can be used as a sentinel by callers.
//
// An Arena is not safe for concurrent mutation.
package arena
