package judge

import (
	"math"

	"habit_hero/internal/app/sandbox"
)

// StrictEqual mirrors JavaScript === for primitives. Arrays and plain objects
// are compared element by element with the same rule, since expected values
// come from JSON and can never share identity with a returned value.
func StrictEqual(got, want any) bool {
	if gn, ok := toNumber(got); ok {
		wn, ok := toNumber(want)
		return ok && gn == wn // NaN != NaN
	}
	switch g := got.(type) {
	case nil:
		return want == nil
	case sandbox.UndefinedValue:
		_, ok := want.(sandbox.UndefinedValue)
		return ok
	case string:
		w, ok := want.(string)
		return ok && g == w
	case bool:
		w, ok := want.(bool)
		return ok && g == w
	case []any:
		w, ok := want.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range g {
			if !StrictEqual(g[i], w[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		w, ok := want.(map[string]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for k, gv := range g {
			wv, present := w[k]
			if !present || !StrictEqual(gv, wv) {
				return false
			}
		}
		return true
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return math.NaN(), false
}
