package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Kind classifies a state value for comparison purposes.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindText
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "other"
	}
}

// Value is a tagged view over an arbitrary state value.
type Value struct {
	Kind Kind

	raw  any
	b    bool
	num  float64
	text string
	list []any
	m    map[string]any
}

// Missing is the value of a key absent from the state.
func Missing() Value {
	return Value{Kind: KindMissing}
}

// Of classifies v.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBool, raw: v, b: x}
	case string:
		return Value{Kind: KindText, raw: v, text: x}
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Value{Kind: KindNumber, raw: v, num: f}
		}
		return Value{Kind: KindText, raw: v, text: x.String()}
	case []any:
		if x == nil {
			return Value{Kind: KindNull}
		}
		return Value{Kind: KindList, raw: v, list: x}
	case map[string]any:
		if x == nil {
			return Value{Kind: KindNull}
		}
		return Value{Kind: KindMap, raw: v, m: x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Kind: KindNumber, raw: v, num: float64(rv.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{Kind: KindNumber, raw: v, num: float64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return Value{Kind: KindNumber, raw: v, num: rv.Float()}
	case reflect.String:
		return Value{Kind: KindText, raw: v, text: rv.String()}
	case reflect.Bool:
		return Value{Kind: KindBool, raw: v, b: rv.Bool()}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Value{Kind: KindNull}
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return Value{Kind: KindList, raw: v, list: items}
	case reflect.Map:
		if rv.IsNil() {
			return Value{Kind: KindNull}
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return Value{Kind: KindMap, raw: v, m: m}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{Kind: KindNull}
		}
		return Of(rv.Elem().Interface())
	}
	return Value{Kind: KindOther, raw: v}
}

func (v Value) nullish() bool {
	return v.Kind == KindMissing || v.Kind == KindNull
}

// Equal reports value equality. Values of different kinds are never equal,
// except that a missing key equals null.
func Equal(a, b Value) bool {
	if a.nullish() || b.nullish() {
		return a.nullish() && b.nullish()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindText:
		return a.text == b.text
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(Of(a.list[i]), Of(b.list[i])) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(Of(av), Of(bv)) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a.raw, b.raw)
}

// Compare orders a against b. ok is false when the pair has no defined ordering:
// mismatched kinds, maps, nulls, NaN, or lists holding incomparable elements.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.Kind != b.Kind {
		return 0, false
	}
	switch a.Kind {
	case KindNumber:
		if math.IsNaN(a.num) || math.IsNaN(b.num) {
			return 0, false
		}
		switch {
		case a.num < b.num:
			return -1, true
		case a.num > b.num:
			return 1, true
		}
		return 0, true
	case KindText:
		return strings.Compare(a.text, b.text), true
	case KindBool:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		}
		return 1, true
	case KindList:
		n := min(len(a.list), len(b.list))
		for i := 0; i < n; i++ {
			av, bv := Of(a.list[i]), Of(b.list[i])
			if Equal(av, bv) {
				continue
			}
			return Compare(av, bv)
		}
		switch {
		case len(a.list) < len(b.list):
			return -1, true
		case len(a.list) > len(b.list):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
