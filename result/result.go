package result

// Result is a value plus the errors and warnings produced computing it.
type Result[T any] struct {
	Value    T
	Errors   Errors
	Warnings []Warning
}

// Ok returns a valid result.
func Ok[T any](v T, warnings ...Warning) Result[T] {
	return Result[T]{Value: v, Warnings: warnings}
}

// Fail returns an invalid result holding errs.
func Fail[T any](errs ...*Error) Result[T] {
	return Result[T]{Errors: errs}
}

// FailErr returns an invalid result holding err converted with FromError.
func FailErr[T any](err error) Result[T] {
	return Result[T]{Errors: Errors{FromError(err)}}
}

// Valid reports whether the result carries no errors.
func (r Result[T]) Valid() bool { return len(r.Errors) == 0 }

// Err returns the errors as a single error, or nil.
func (r Result[T]) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors
}

// AddError appends errors.
func (r *Result[T]) AddError(errs ...*Error) { r.Errors = append(r.Errors, errs...) }

// AddWarning appends warnings.
func (r *Result[T]) AddWarning(ws ...Warning) { r.Warnings = append(r.Warnings, ws...) }

// Then carries r's diagnostics over to a result of another type holding v.
func Then[U, T any](r Result[T], v U) Result[U] {
	return Result[U]{Value: v, Errors: r.Errors, Warnings: r.Warnings}
}

// Merge appends src's diagnostics to dst.
func Merge[T, U any](dst *Result[T], src Result[U]) {
	dst.Errors = append(dst.Errors, src.Errors...)
	dst.Warnings = append(dst.Warnings, src.Warnings...)
}
