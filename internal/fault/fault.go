// Package fault carries the pipeline's typed failure taxonomy. Every stage
// wraps its errors with a Kind so the serving shell can classify failures
// without string matching, and operator diagnostics (external tool stderr)
// ride along in the message chain.
package fault

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindExtraction    Kind = "ExtractionError"
	KindTranscription Kind = "TranscriptionError"
	KindAlignment     Kind = "AlignmentError"
	KindComposition   Kind = "CompositionError"
	KindTimeout       Kind = "TimeoutError"
	KindInternal      Kind = "InternalError"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	parts = append(parts, string(e.Kind))
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with a kind and operation context. A nil err yields nil so
// call sites can wrap unconditionally. An already-kinded error keeps its
// original kind; only the operation context is added.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if existing := new(Error); errors.As(err, &existing) {
		kind = existing.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds a kinded error from a format string.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies an arbitrary error. Context cancellation and deadline
// expiry map to KindTimeout even when a stage forgot to tag them.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// Message is the user-visible text: the error chain below the kind tag.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Err == nil {
			return string(fe.Kind)
		}
		if fe.Op != "" {
			return fe.Op + ": " + fe.Err.Error()
		}
		return fe.Err.Error()
	}
	return err.Error()
}
