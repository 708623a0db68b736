package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

type GojaExecutor struct {
	timeout      time.Duration
	maxCallStack int
}

func NewGojaExecutor(timeout time.Duration, maxCallStack int) *GojaExecutor {
	return &GojaExecutor{timeout: timeout, maxCallStack: maxCallStack}
}

func (e *GojaExecutor) Invoke(ctx context.Context, source, functionName string, args []any) (result any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	vm := goja.New()
	if e.maxCallStack > 0 {
		vm.SetMaxCallStackSize(e.maxCallStack)
	}

	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() { vm.Interrupt(ErrTimeout) })
		defer timer.Stop()
	}
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: panic: %v", ErrExecution, r)
		}
	}()

	// Arguments are parsed before the user's code runs so it cannot shadow JSON.
	jsArgs, err := importArgs(vm, args)
	if err != nil {
		return nil, err
	}

	if _, err := vm.RunString(source); err != nil {
		return nil, classify(err)
	}
	fn, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, fmt.Errorf("%w: %q is not callable", ErrNoFunctionFound, functionName)
	}
	ret, err := fn(goja.Undefined(), jsArgs...)
	if err != nil {
		return nil, classify(err)
	}
	return exportValue(ret, 0)
}

// importArgs copies args into the VM through JSON so no Go memory is shared.
func importArgs(vm *goja.Runtime, args []any) ([]goja.Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("sandbox: encode arguments: %w", err)
	}
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("sandbox: JSON.parse unavailable")
	}
	parsed, err := parse(goja.Undefined(), vm.ToValue(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("sandbox: decode arguments: %w", err)
	}
	arr := parsed.ToObject(vm)
	out := make([]goja.Value, len(args))
	for i := range out {
		out[i] = arr.Get(strconv.Itoa(i))
	}
	return out, nil
}

const (
	maxExportDepth  = 64
	maxExportLength = 1 << 20
)

// exportValue walks arrays and plain objects itself so undefined elements and
// properties stay distinct from null. Anything else goes through Export.
func exportValue(v goja.Value, depth int) (any, error) {
	if v == nil || goja.IsUndefined(v) {
		return Undefined, nil
	}
	if goja.IsNull(v) {
		return nil, nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.Export(), nil
	}
	switch obj.ClassName() {
	case "Array", "Object":
	default:
		return obj.Export(), nil
	}
	if depth >= maxExportDepth {
		return nil, fmt.Errorf("%w: return value nested deeper than %d levels", ErrExecution, maxExportDepth)
	}

	if obj.ClassName() == "Array" {
		n := obj.Get("length").ToInteger()
		if n < 0 || n > maxExportLength {
			return nil, fmt.Errorf("%w: returned array has %d elements", ErrExecution, n)
		}
		out := make([]any, n)
		for i := range out {
			elem, err := exportValue(obj.Get(strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	}

	keys := obj.Keys()
	if len(keys) > maxExportLength {
		return nil, fmt.Errorf("%w: returned object has %d properties", ErrExecution, len(keys))
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		prop, err := exportValue(obj.Get(k), depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = prop
	}
	return out, nil
}

func classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: %v", ErrTimeout, interrupted.Value())
	}
	var exception *goja.Exception
	if errors.As(err, &exception) && exception.Value() != nil {
		return fmt.Errorf("%w: %s", ErrExecution, exception.Value().String())
	}
	return fmt.Errorf("%w: %v", ErrExecution, err)
}
