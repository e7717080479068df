// Package errors extends the standard library errors with annotations that survive wrapping.
//
// Wrap records the caller location and optional [slog.Attr] annotations. SlogError renders the whole chain as a
// single structured log attribute so that the annotations end up in the log line where the error is finally handled.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
)

type annotatedError struct {
	err         error
	msg         string
	annotations []slog.Attr
	pc          uintptr
}

func (e *annotatedError) Error() string {
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// source returns file:line of the location the error was annotated at.
func (e *annotatedError) source() string {
	if e.pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{e.pc})
	frame, _ := frames.Next()
	return fmt.Sprintf("%s:%d", frame.File, frame.Line)
}

// NewSentinel creates an error meant to be declared as a package-level variable and compared with [Is].
//
// Sentinels don't carry a source location since they are created during package initialisation.
func NewSentinel(text string) error {
	return stderrors.New(text)
}

// New creates an error annotated with the caller location and the given attributes.
func New(text string, annotations ...slog.Attr) error {
	return &annotatedError{
		err:         stderrors.New(text),
		msg:         "",
		annotations: annotations,
		pc:          callerPC(),
	}
}

// Wrap annotates err with a message, the caller location and the given attributes. Wrapping nil returns nil.
func Wrap(err error, msg string, annotations ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{
		err:         err,
		msg:         msg,
		annotations: annotations,
		pc:          callerPC(),
	}
}

// callerPC returns the program counter of the function calling New or Wrap.
func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC, and New/Wrap.
	if runtime.Callers(3, pcs[:]) == 0 { //nolint:mnd // see above.
		return 0
	}
	return pcs[0]
}

// SlogError converts err into a structured log attribute containing the message, all annotations found in the
// chain and the source of the innermost annotation.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}

	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
		if s := ae.source(); s != "" {
			source = s
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the chain from the outermost to the innermost, following joined errors too.
func walk(err error, visit func(*annotatedError)) {
	for err != nil {
		if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // we walk the chain manually.
			visit(ae)
		}
		switch u := err.(type) { //nolint:errorlint // we walk the chain manually.
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner, visit)
			}
			return
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return
		}
	}
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// DecoratePanic converts a recovered panic value into an error whose source points to the panicking line.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var err error
	if e, ok := excp.(error); ok {
		err = fmt.Errorf("panic: %w", e)
	} else {
		err = fmt.Errorf("panic: %v", excp)
	}

	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var pc uintptr
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic {
			// CallersFrames expects return addresses.
			pc = frame.PC + 1
			break
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
	}

	return &annotatedError{
		err:         err,
		msg:         "",
		annotations: nil,
		pc:          pc,
	}
}
