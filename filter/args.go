package filter

import (
	"fmt"
	"maps"

	"github.com/hupe1980/nxgraph/result"
)

var (
	// ErrMissingArgument is returned when a required argument is absent.
	ErrMissingArgument = result.Sentinel(result.KindValidation, "filter: missing argument")
	// ErrArgumentType is returned when an argument has the wrong type.
	ErrArgumentType = result.Sentinel(result.KindValidation, "filter: argument type mismatch")
	// ErrInvalidArgument is returned when an argument fails validation.
	ErrInvalidArgument = result.Sentinel(result.KindValidation, "filter: invalid argument")
	// ErrUnknownArgument is returned for arguments no parameter declares.
	ErrUnknownArgument = result.Sentinel(result.KindValidation, "filter: unknown argument")
)

// Arguments maps parameter names to values.
type Arguments map[string]any

// Clone returns a shallow copy.
func (a Arguments) Clone() Arguments { return maps.Clone(a) }

// Get returns the argument name as T. It fails on a missing name or a
// value of another type; it never substitutes a default.
func Get[T any](args Arguments, name string) (T, error) {
	var zero T
	v, ok := args[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T, want %T", ErrArgumentType, name, v, zero)
	}
	return t, nil
}

// Reader reads several arguments and keeps the first error.
type Reader struct {
	args Arguments
	err  error
}

// NewReader returns a Reader over args.
func NewReader(args Arguments) *Reader { return &Reader{args: args} }

// Err returns the first retrieval error.
func (r *Reader) Err() error { return r.err }

// Read returns the argument name as T through r.
func Read[T any](r *Reader, name string) T {
	v, err := Get[T](r.args, name)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}
