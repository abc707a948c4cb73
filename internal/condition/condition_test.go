package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/formsmith/internal/model"
)

func element(conds ...model.FormCondition) model.FormElement {
	return model.FormElement{ElementID: "target", Type: model.TypeShortAnswer, Conditions: conds}
}

func cond(op model.Operator, value string) model.FormCondition {
	return model.FormCondition{ElementID: "q1", Operator: op, Value: value}
}

func TestVisible_NoConditions(t *testing.T) {
	el := element()
	for _, values := range []map[string]any{nil, {}, {"q1": "anything"}, {"q1": nil}} {
		assert.True(t, Visible(el, values))
	}
}

func TestVisible_Operators(t *testing.T) {
	tests := []struct {
		name   string
		cond   model.FormCondition
		values map[string]any
		want   bool
	}{
		{"equals matches", cond(model.OpEquals, "yes"), map[string]any{"q1": "yes"}, true},
		{"equals differs", cond(model.OpEquals, "yes"), map[string]any{"q1": "no"}, false},
		{"equals undefined", cond(model.OpEquals, "yes"), map[string]any{}, false},
		{"equals null", cond(model.OpEquals, "yes"), map[string]any{"q1": nil}, false},
		{"equals number value", cond(model.OpEquals, "3"), map[string]any{"q1": float64(3)}, true},
		{"equals bool value", cond(model.OpEquals, "true"), map[string]any{"q1": true}, true},

		{"not_equals differs", cond(model.OpNotEquals, "yes"), map[string]any{"q1": "no"}, true},
		{"not_equals same", cond(model.OpNotEquals, "yes"), map[string]any{"q1": "yes"}, false},
		{"not_equals undefined", cond(model.OpNotEquals, "yes"), map[string]any{}, true},

		{"contains substring", cond(model.OpContains, "ell"), map[string]any{"q1": "hello"}, true},
		{"contains missing substring", cond(model.OpContains, "xyz"), map[string]any{"q1": "hello"}, false},
		{"contains list member", cond(model.OpContains, "red"), map[string]any{"q1": []any{"blue", "red"}}, true},
		{"contains list is membership not substring", cond(model.OpContains, "re"), map[string]any{"q1": []any{"blue", "red"}}, false},
		{"contains string list", cond(model.OpContains, "a"), map[string]any{"q1": []string{"a", "b"}}, true},
		{"contains undefined", cond(model.OpContains, "a"), map[string]any{}, false},

		{"greater_than numeric strings", cond(model.OpGreaterThan, "10"), map[string]any{"q1": "11"}, true},
		{"greater_than number", cond(model.OpGreaterThan, "10"), map[string]any{"q1": float64(9)}, false},
		{"greater_than non-numeric value", cond(model.OpGreaterThan, "10"), map[string]any{"q1": "eleven"}, false},
		{"greater_than non-numeric literal", cond(model.OpGreaterThan, "ten"), map[string]any{"q1": "11"}, false},
		{"greater_than undefined", cond(model.OpGreaterThan, "1"), map[string]any{}, false},
		{"less_than decimals", cond(model.OpLessThan, "2.5"), map[string]any{"q1": " 2.25 "}, true},
		{"less_than equal is false", cond(model.OpLessThan, "2"), map[string]any{"q1": "2"}, false},
		{"less_than list value", cond(model.OpLessThan, "2"), map[string]any{"q1": []any{"1"}}, false},

		{"unknown operator", cond("matches", "x"), map[string]any{"q1": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Visible(element(tt.cond), tt.values))
		})
	}
}

func TestVisible_AllConditionsMustHold(t *testing.T) {
	el := element(
		model.FormCondition{ElementID: "q1", Operator: model.OpEquals, Value: "yes"},
		model.FormCondition{ElementID: "q2", Operator: model.OpGreaterThan, Value: "18"},
	)

	assert.True(t, Visible(el, map[string]any{"q1": "yes", "q2": "21"}))
	assert.False(t, Visible(el, map[string]any{"q1": "yes", "q2": "17"}))
	assert.False(t, Visible(el, map[string]any{"q1": "no", "q2": "21"}))
}

func TestRequiredAndEvaluate(t *testing.T) {
	elements := []model.FormElement{
		{ElementID: "q1", Type: model.TypeDropdown, Required: true},
		{ElementID: "q2", Type: model.TypeParagraph, Required: true,
			Conditions: []model.FormCondition{{ElementID: "q1", Operator: model.OpEquals, Value: "other"}}},
		{ElementID: "s1", Type: model.TypeSection, Required: true},
	}
	values := map[string]any{"q1": "cats"}

	assert.True(t, Required(elements[0], values))
	assert.False(t, Required(elements[1], values), "hidden elements are never required")
	assert.False(t, Required(elements[2], values), "sections take no input")

	states := Evaluate(elements, values)
	assert.Equal(t, State{Visible: true, Required: true}, states["q1"])
	assert.Equal(t, State{Visible: false, Required: false}, states["q2"])
	assert.Equal(t, State{Visible: true, Required: false}, states["s1"])

	states = Evaluate(elements, map[string]any{"q1": "other"})
	assert.Equal(t, State{Visible: true, Required: true}, states["q2"])
}

func TestVisible_DoesNotMutateInput(t *testing.T) {
	values := map[string]any{"q1": []any{"a"}}
	el := element(cond(model.OpContains, "a"))

	for i := 0; i < 3; i++ {
		assert.True(t, Visible(el, values))
	}
	assert.Equal(t, map[string]any{"q1": []any{"a"}}, values)
}
