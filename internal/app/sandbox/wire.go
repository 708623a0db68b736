package sandbox

import (
	"fmt"
	"strconv"
)

// wireValue carries a result across the runner boundary without the losses of
// plain JSON: undefined survives, integers stay integers and NaN or Infinity
// keep their identity.
type wireValue struct {
	Type  string               `json:"t"`
	Num   string               `json:"n,omitempty"`
	Str   string               `json:"s,omitempty"`
	Bool  bool                 `json:"b,omitempty"`
	Items []wireValue          `json:"a,omitempty"`
	Props map[string]wireValue `json:"o,omitempty"`
}

// opaqueValue stands in for results with no JSON-like shape, such as a Date.
// It never equals an expected value.
type opaqueValue struct {
	Repr string
}

func (o opaqueValue) String() string { return o.Repr }

func encodeValue(v any) wireValue {
	switch x := v.(type) {
	case UndefinedValue:
		return wireValue{Type: "undefined"}
	case nil:
		return wireValue{Type: "null"}
	case bool:
		return wireValue{Type: "bool", Bool: x}
	case int64:
		return wireValue{Type: "int", Num: strconv.FormatInt(x, 10)}
	case int:
		return wireValue{Type: "int", Num: strconv.Itoa(x)}
	case float64:
		return wireValue{Type: "float", Num: strconv.FormatFloat(x, 'g', -1, 64)}
	case string:
		return wireValue{Type: "string", Str: x}
	case []any:
		items := make([]wireValue, len(x))
		for i, elem := range x {
			items[i] = encodeValue(elem)
		}
		return wireValue{Type: "array", Items: items}
	case map[string]any:
		props := make(map[string]wireValue, len(x))
		for k, prop := range x {
			props[k] = encodeValue(prop)
		}
		return wireValue{Type: "object", Props: props}
	}
	return wireValue{Type: "opaque", Str: fmt.Sprint(v)}
}

func (w wireValue) decode() (any, error) {
	switch w.Type {
	case "undefined":
		return Undefined, nil
	case "null":
		return nil, nil
	case "bool":
		return w.Bool, nil
	case "int":
		n, err := strconv.ParseInt(w.Num, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad integer %q", ErrExecution, w.Num)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(w.Num, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrExecution, w.Num)
		}
		return f, nil
	case "string":
		return w.Str, nil
	case "array":
		out := make([]any, len(w.Items))
		for i, item := range w.Items {
			v, err := item.decode()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "object":
		out := make(map[string]any, len(w.Props))
		for k, prop := range w.Props {
			v, err := prop.decode()
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case "opaque":
		return opaqueValue{Repr: w.Str}, nil
	}
	return nil, fmt.Errorf("%w: unknown value type %q", ErrExecution, w.Type)
}
