//go:build stacktrace

package errors

import (
	goerrors "errors"
	"fmt"
	"runtime"
	"strings"
)

type unwrap interface {
	Unwrap() []error
}

type stacktrace interface {
	Stacktrace() string
}

const maxStackDepth = 16

type Error struct {
	curr      error
	callStack []string
}

func (e *Error) Stacktrace() string {
	sb := strings.Builder{}
	sb.WriteString("Error: ")
	sb.WriteString(e.curr.Error())
	sb.WriteString("\nStacktrace:\n")
	sb.WriteString(strings.Join(e.callStack, "\n"))
	return sb.String()
}

func (e *Error) Error() string {
	return e.curr.Error()
}

func New(text string) error {
	pcs := make([]uintptr, maxStackDepth)
	length := runtime.Callers(2, pcs)
	callStack := make([]string, 0, length)
	for _, pc := range pcs[:length] {
		f := runtime.FuncForPC(pc)
		file, lineno := f.FileLine(pc - 1)
		callStack = append(callStack, fmt.Sprintf("%s:%d\n\t%s", file, lineno, f.Name()))
	}

	return &Error{
		curr:      goerrors.New(text),
		callStack: callStack,
	}
}

func Stacktrace(err error) string {
	if err, ok := err.(stacktrace); ok {
		return err.Stacktrace()
	}
	if errs, ok := err.(unwrap); ok {
		var trace []string
		for _, e := range errs.Unwrap() {
			trace = append(trace, Stacktrace(e))
		}
		return strings.Join(trace, "\ncaused by\n")
	}
	return err.Error()
}
