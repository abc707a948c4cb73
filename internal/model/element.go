package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ElementType is the kind of field a FormElement renders as.
type ElementType string

const (
	TypeShortAnswer    ElementType = "short-answer"
	TypeParagraph      ElementType = "paragraph"
	TypeNumber         ElementType = "number"
	TypeMultipleChoice ElementType = "multiple-choice"
	TypeCheckboxes     ElementType = "checkboxes"
	TypeDropdown       ElementType = "dropdown"
	TypeImageSelection ElementType = "image-selection"
	TypeDate           ElementType = "date"
	TypeEmail          ElementType = "email"
	TypePhoneNumber    ElementType = "phone-number"
	TypeWebsiteURL     ElementType = "website-url"
	TypeRatingScale    ElementType = "rating-scale"
	TypeTime           ElementType = "time"
	TypeRangeSlider    ElementType = "range-slider"
	TypeSection        ElementType = "section"
)

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	switch t {
	case TypeShortAnswer, TypeParagraph, TypeNumber, TypeMultipleChoice,
		TypeCheckboxes, TypeDropdown, TypeImageSelection, TypeDate, TypeEmail,
		TypePhoneNumber, TypeWebsiteURL, TypeRatingScale, TypeTime,
		TypeRangeSlider, TypeSection:
		return true
	}
	return false
}

// HasOptions reports whether the type offers a fixed list of choices.
func (t ElementType) HasOptions() bool {
	switch t {
	case TypeMultipleChoice, TypeCheckboxes, TypeDropdown, TypeImageSelection:
		return true
	}
	return false
}

// HasRange reports whether the type accepts min/max/step bounds.
func (t ElementType) HasRange() bool {
	switch t {
	case TypeNumber, TypeRatingScale, TypeRangeSlider:
		return true
	}
	return false
}

// AcceptsInput is false for purely structural elements.
func (t ElementType) AcceptsInput() bool {
	return t != TypeSection
}

// Operator compares a controlling element's value with a condition literal.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

// FormCondition makes the owning element's visibility depend on the current
// value of another element.
type FormCondition struct {
	ID        string   `json:"id,omitempty"`
	ElementID string   `json:"elementId"`
	Operator  Operator `json:"operator"`
	Value     string   `json:"value"`
}

// FormElement is one field of a Form. ElementID is assigned by the caller and
// survives edits; the store's own row id never leaves the repository.
type FormElement struct {
	ElementID  string          `json:"id"`
	Type       ElementType     `json:"type"`
	Label      string          `json:"label"`
	Required   bool            `json:"required"`
	Properties Properties      `json:"properties"`
	Conditions []FormCondition `json:"conditions"`
	Order      int             `json:"order"`
}

// Properties holds the type-specific settings of an element. The typed fields
// cover what the builder edits; anything else round-trips through Extra.
type Properties struct {
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options,omitempty"`
	MinValue    *float64 `json:"minValue,omitempty"`
	MaxValue    *float64 `json:"maxValue,omitempty"`
	Step        *float64 `json:"step,omitempty"`

	Extra map[string]any `json:"-"`
}

var knownPropertyKeys = map[string]bool{
	"description": true,
	"options":     true,
	"minValue":    true,
	"maxValue":    true,
	"step":        true,
}

// Validate checks that the settings make sense for an element of type t.
func (p Properties) Validate(t ElementType) error {
	if len(p.Options) > 0 && !t.HasOptions() {
		return fmt.Errorf("options are not allowed on %s elements", t)
	}
	if (p.MinValue != nil || p.MaxValue != nil || p.Step != nil) && !t.HasRange() {
		return fmt.Errorf("range settings are not allowed on %s elements", t)
	}
	if p.MinValue != nil && p.MaxValue != nil && *p.MinValue > *p.MaxValue {
		return fmt.Errorf("minValue %v is greater than maxValue %v", *p.MinValue, *p.MaxValue)
	}
	if p.Step != nil && *p.Step <= 0 {
		return fmt.Errorf("step must be positive, got %v", *p.Step)
	}
	return nil
}

// MarshalJSON flattens Extra next to the typed fields.
func (p Properties) MarshalJSON() ([]byte, error) {
	type plain Properties
	typed, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return typed, nil
	}

	merged := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		if !knownPropertyKeys[k] {
			merged[k] = v
		}
	}
	if err := json.Unmarshal(typed, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the typed fields and keeps unknown keys in Extra.
func (p *Properties) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Properties{}
		return nil
	}

	type plain Properties
	var typed plain
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownPropertyKeys {
		delete(all, k)
	}

	*p = Properties(typed)
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}
