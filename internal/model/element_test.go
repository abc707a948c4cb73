package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_KeepsUnknownKeys(t *testing.T) {
	raw := `{"options":["a","b"],"description":"pick one","layout":"grid","columns":2}`

	var p Properties
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, []string{"a", "b"}, p.Options)
	assert.Equal(t, "pick one", p.Description)
	assert.Equal(t, map[string]any{"layout": "grid", "columns": float64(2)}, p.Extra)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestProperties_TypedFieldsWinOverExtra(t *testing.T) {
	p := Properties{Description: "typed", Extra: map[string]any{"description": "shadow", "hint": "x"}}

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"typed","hint":"x"}`, string(out))
}

func TestProperties_Null(t *testing.T) {
	p := Properties{Description: "old"}
	require.NoError(t, json.Unmarshal([]byte("null"), &p))
	assert.Equal(t, Properties{}, p)

	out, err := json.Marshal(Properties{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestProperties_Validate(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		typ     ElementType
		props   Properties
		wantErr bool
	}{
		{"options on dropdown", TypeDropdown, Properties{Options: []string{"a"}}, false},
		{"options on short answer", TypeShortAnswer, Properties{Options: []string{"a"}}, true},
		{"range on slider", TypeRangeSlider, Properties{MinValue: f(0), MaxValue: f(10), Step: f(0.5)}, false},
		{"range on date", TypeDate, Properties{MinValue: f(0)}, true},
		{"min above max", TypeNumber, Properties{MinValue: f(5), MaxValue: f(1)}, true},
		{"zero step", TypeRatingScale, Properties{Step: f(0)}, true},
		{"description anywhere", TypeSection, Properties{Description: "intro"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate(tt.typ)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestElementType(t *testing.T) {
	assert.True(t, TypeImageSelection.Valid())
	assert.False(t, ElementType("signature").Valid())
	assert.True(t, TypeCheckboxes.HasOptions())
	assert.False(t, TypeEmail.HasOptions())
	assert.False(t, TypeSection.AcceptsInput())
	assert.True(t, TypeTime.AcceptsInput())
	assert.False(t, Operator("matches").Valid())
	assert.False(t, FormStatus("published").Valid())
}
