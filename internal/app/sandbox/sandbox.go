// Package sandbox runs a single untrusted JavaScript function in a throwaway
// interpreter, optionally inside a memory-capped runner process. Nothing from
// the host process is reachable from the script and no global survives
// between invocations.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

var (
	ErrNoFunctionFound = errors.New("no function declaration found")
	ErrExecution       = errors.New("execution error")
	ErrTimeout         = errors.New("execution timed out")
)

// UndefinedValue is what Invoke returns when the function returns undefined.
type UndefinedValue struct{}

var Undefined = UndefinedValue{}

func (UndefinedValue) String() string { return "undefined" }

// Executor invokes functionName, as declared in source, with args.
// args and the returned value are plain JSON-like Go values.
type Executor interface {
	Invoke(ctx context.Context, source, functionName string, args []any) (any, error)
}

// FunctionName returns the name of the first top-level function declaration.
func FunctionName(source string) (string, error) {
	program, err := parser.ParseFile(nil, "", source, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecution, err)
	}
	for _, stmt := range program.Body {
		fd, ok := stmt.(*ast.FunctionDeclaration)
		if !ok || fd.Function == nil || fd.Function.Name == nil {
			continue
		}
		return string(fd.Function.Name.Name), nil
	}
	return "", ErrNoFunctionFound
}

// Run discovers the function name and invokes it once.
func Run(ctx context.Context, ex Executor, source string, args []any) (any, error) {
	name, err := FunctionName(source)
	if err != nil {
		return nil, err
	}
	return ex.Invoke(ctx, source, name, args)
}
