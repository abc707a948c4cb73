// Package condition decides which form elements are shown for a set of live
// field values.
//
// Everything here is a pure function of its arguments, cheap enough to run on
// every keystroke. A missing or malformed value never produces an error: the
// condition that needed it is simply false.
package condition

import (
	"math"
	"strconv"
	"strings"

	"github.com/sakif/formsmith/internal/model"
)

// State is the evaluated state of one element.
type State struct {
	Visible  bool `json:"visible"`
	Required bool `json:"required"`
}

// Visible reports whether el is shown given values (keyed by elementId). An
// element without conditions is always visible; otherwise every condition
// must hold.
func Visible(el model.FormElement, values map[string]any) bool {
	for _, c := range el.Conditions {
		v, ok := values[c.ElementID]
		if !Holds(c, v, ok) {
			return false
		}
	}
	return true
}

// Required reports whether el currently demands an answer: it is marked
// required, takes input, and is visible.
func Required(el model.FormElement, values map[string]any) bool {
	return el.Required && el.Type.AcceptsInput() && Visible(el, values)
}

// Evaluate computes the state of every element, keyed by elementId.
func Evaluate(elements []model.FormElement, values map[string]any) map[string]State {
	out := make(map[string]State, len(elements))
	for _, el := range elements {
		visible := Visible(el, values)
		out[el.ElementID] = State{
			Visible:  visible,
			Required: visible && el.Required && el.Type.AcceptsInput(),
		}
	}
	return out
}

// Holds evaluates a single condition against the controlling element's value.
// present is false when the controlling element has no value at all.
func Holds(c model.FormCondition, value any, present bool) bool {
	switch c.Operator {
	case model.OpEquals:
		return present && value != nil && text(value) == c.Value
	case model.OpNotEquals:
		return !present || value == nil || text(value) != c.Value
	case model.OpContains:
		if !present || value == nil {
			return false
		}
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if text(item) == c.Value {
					return true
				}
			}
			return false
		}
		if list, ok := value.([]string); ok {
			for _, item := range list {
				if item == c.Value {
					return true
				}
			}
			return false
		}
		return strings.Contains(text(value), c.Value)
	case model.OpGreaterThan, model.OpLessThan:
		if !present {
			return false
		}
		left, ok := number(value)
		if !ok {
			return false
		}
		right, ok := number(c.Value)
		if !ok {
			return false
		}
		if c.Operator == model.OpGreaterThan {
			return left > right
		}
		return left < right
	}
	return false
}

// text renders a submitted value the way it is compared with a literal.
// Lists join with commas.
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = text(item)
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	}
	return ""
}

func number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
