// Package gqlerr defines the error-kind hierarchy from spec.md §7, used to
// discriminate failures at the GraphQL façade so nullable fields can absorb
// them while non-nullable failures propagate to the nearest nullable
// ancestor.
package gqlerr

import "fmt"

// Kind names one of the six error categories from spec.md §7. These are
// descriptive labels, not a type switch target — callers branch on the
// concrete *Error via errors.As/Is as usual.
type Kind string

const (
	KindConfig     Kind = "ConfigError"
	KindValidation Kind = "ValidationError"
	KindEvaluation Kind = "EvaluationError"
	KindUpstream   Kind = "UpstreamError"
	KindDecoding   Kind = "DecodingError"
	KindBatching   Kind = "BatchingError"
)

// Error is the gateway's typed error, carrying the field-resolution path
// that produced it so the façade can populate GraphQL errors[].path.
type Error struct {
	Kind    Kind
	Message string
	Path    []interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithPath returns a copy of e with path prepended by seg, used as the
// error bubbles up through nested field resolution.
func (e *Error) WithPath(seg interface{}) *Error {
	path := make([]interface{}, 0, len(e.Path)+1)
	path = append(path, seg)
	path = append(path, e.Path...)
	return &Error{Kind: e.Kind, Message: e.Message, Cause: e.Cause, Path: path}
}
