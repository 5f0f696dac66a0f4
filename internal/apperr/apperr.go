package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the API layer can report them without
// inspecting upstream error types.
type Kind string

const (
	KindConfiguration      Kind = "CONFIGURATION"
	KindMediaDecode        Kind = "MEDIA_DECODE"
	KindTranscription      Kind = "TRANSCRIPTION"
	KindStorageUnavailable Kind = "STORAGE_UNAVAILABLE"
	KindStorage            Kind = "STORAGE"
	KindCompletion         Kind = "COMPLETION_SERVICE"
	KindUpstream           Kind = "UPSTREAM"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindNotFound           Kind = "NOT_FOUND"
)

// Sentinels for errors.Is checks.
var (
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrMediaDecode        = &Error{Kind: KindMediaDecode}
	ErrTranscription      = &Error{Kind: KindTranscription}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrStorage            = &Error{Kind: KindStorage}
	ErrCompletion         = &Error{Kind: KindCompletion}
	ErrUpstream           = &Error{Kind: KindUpstream}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// Error is a classified failure raised by a component operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New wraps err under kind for operation op.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or "" when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
