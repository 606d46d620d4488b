package result

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindStructural
	KindValidation
	KindIO
	KindAlgorithm
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "StructuralError"
	case KindValidation:
		return "ValidationError"
	case KindIO:
		return "IOError"
	case KindAlgorithm:
		return "AlgorithmError"
	default:
		return "UnknownError"
	}
}

// Default codes per kind. Callers may use any code of their own.
const (
	CodeStructural = -1000
	CodeValidation = -2000
	CodeIO         = -3000
	CodeAlgorithm  = -4000
)

func (k Kind) defaultCode() int {
	switch k {
	case KindStructural:
		return CodeStructural
	case KindValidation:
		return CodeValidation
	case KindIO:
		return CodeIO
	case KindAlgorithm:
		return CodeAlgorithm
	default:
		return -1
	}
}

// kinded is implemented by errors that know their classification.
type kinded interface {
	error
	ErrorKind() Kind
}

type sentinel struct {
	kind Kind
	msg  string
}

func (s *sentinel) Error() string   { return s.msg }
func (s *sentinel) ErrorKind() Kind { return s.kind }

// Sentinel returns a comparable sentinel error of the given kind.
func Sentinel(kind Kind, msg string) error {
	return &sentinel{kind: kind, msg: msg}
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindUnknown
}

// Error is one reported failure.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

// Newf builds an Error of the given kind with the kind's default code.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: kind.defaultCode(), Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around err. The message defaults to err's text.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := err.Error()
	if format != "" {
		msg = fmt.Sprintf(format, args...) + ": " + msg
	}
	return &Error{Kind: kind, Code: kind.defaultCode(), Message: msg, Err: err}
}

// FromError converts any error into an *Error, classifying it with KindOf.
// Unclassified errors become KindAlgorithm. A nil err yields nil.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		kind = KindAlgorithm
	}
	return &Error{Kind: kind, Code: kind.defaultCode(), Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(%d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorKind() Kind { return e.Kind }

// Warning is a non-fatal diagnostic.
type Warning struct {
	Code    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("warning(%d): %s", w.Code, w.Message)
}

// Warnf builds a Warning.
func Warnf(code int, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Errors is a list of errors that is itself an error.
type Errors []*Error

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
