package condition

import (
	"fmt"
	"unicode/utf8"

	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/spf13/cast"
)

// Evaluate decides whether cond holds for state.
// It never fails: incomparable or malformed inputs simply do not match.
func Evaluate(cond domain.Condition, state domain.State) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()

	left := Missing()
	if raw, ok := state[cond.Key]; ok {
		left = Of(raw)
	}

	if cond.Op.IsLength() {
		return evaluateLength(cond.Op, left, cond.Value)
	}

	right := Of(cond.Value)
	switch cond.Op {
	case domain.OpEqual:
		return Equal(left, right)
	case domain.OpNotEqual:
		return !Equal(left, right)
	}

	cmp, ok := Compare(left, right)
	if !ok {
		return false
	}
	switch cond.Op {
	case domain.OpLessThan:
		return cmp < 0
	case domain.OpLessEqual:
		return cmp <= 0
	case domain.OpGreaterThan:
		return cmp > 0
	case domain.OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

func evaluateLength(op domain.Operator, left Value, limit any) bool {
	if left.Kind == KindMissing || limit == nil {
		return false
	}
	want, err := cast.ToIntE(limit)
	if err != nil {
		return false
	}
	length := utf8.RuneCountInString(Text(left))

	switch op {
	case domain.OpLengthLessThan:
		return length < want
	case domain.OpLengthLessEqual:
		return length <= want
	case domain.OpLengthGreaterThan:
		return length > want
	case domain.OpLengthGreaterEqual:
		return length >= want
	}
	return false
}

// Text returns the textual form used by the length operators.
// Strings are taken as is; every other value uses its JSON encoding. Lengths of
// floats and lists follow that encoding rather than a language-specific repr:
// 3.0 is "3" and []string{"a", "b"} is ["a","b"] with no spaces.
func Text(v Value) string {
	switch v.Kind {
	case KindMissing:
		return ""
	case KindNull:
		return "null"
	case KindText:
		return v.text
	}
	if data, err := xjson.Marshal(v.raw); err == nil {
		return string(data)
	}
	return fmt.Sprint(v.raw)
}
