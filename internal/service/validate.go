package service

import (
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/model"
)

// Validation limits for saved forms.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxLabelLength       = 500
	MaxElements          = 200

	DefaultCreatorUsername = "Anonymous User"
)

// normalizeInput trims and checks a FormInput, returning the copy that will
// be written. Elements without an elementId get a fresh one.
func normalizeInput(in model.FormInput) (model.FormInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.CreatorUsername = strings.TrimSpace(in.CreatorUsername)

	if in.Title == "" {
		return in, apperror.ValidationFailed("title", "form title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return in, apperror.ValidationFailed("title",
			fmt.Sprintf("form title must be %d characters or less", MaxTitleLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return in, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	if in.Status == "" {
		in.Status = model.StatusDraft
	}
	if !in.Status.Valid() {
		return in, apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	if in.CreatorUsername == "" {
		in.CreatorUsername = DefaultCreatorUsername
	}

	elements, err := normalizeElements(in.Elements)
	if err != nil {
		return in, err
	}
	in.Elements = elements
	return in, nil
}

func normalizeElements(elements []model.FormElement) ([]model.FormElement, error) {
	if len(elements) > MaxElements {
		return nil, apperror.ValidationFailed("elements",
			fmt.Sprintf("a form may have at most %d elements", MaxElements))
	}

	out := make([]model.FormElement, len(elements))
	seen := make(map[string]bool, len(elements))

	for i, el := range elements {
		el.ElementID = strings.TrimSpace(el.ElementID)
		if el.ElementID == "" {
			el.ElementID = xid.New().String()
		}
		field := fmt.Sprintf("elements[%d]", i)

		if seen[el.ElementID] {
			return nil, apperror.ValidationFailed(field, fmt.Sprintf("duplicate element id %q", el.ElementID))
		}
		seen[el.ElementID] = true

		if !el.Type.Valid() {
			return nil, apperror.ValidationFailed(field, fmt.Sprintf("unknown element type %q", el.Type))
		}
		el.Label = strings.TrimSpace(el.Label)
		if len(el.Label) > MaxLabelLength {
			return nil, apperror.ValidationFailed(field,
				fmt.Sprintf("label must be %d characters or less", MaxLabelLength))
		}
		if err := el.Properties.Validate(el.Type); err != nil {
			return nil, apperror.ValidationFailed(field, err.Error())
		}

		el.Order = i
		out[i] = el
	}

	// Conditions may point forwards as well as backwards, so they are checked
	// once every elementId is known.
	for i, el := range out {
		for j, c := range el.Conditions {
			field := fmt.Sprintf("elements[%d].conditions[%d]", i, j)
			if !c.Operator.Valid() {
				return nil, apperror.ValidationFailed(field, fmt.Sprintf("unknown operator %q", c.Operator))
			}
			if c.ElementID == el.ElementID {
				return nil, apperror.ValidationFailed(field, "an element cannot depend on itself")
			}
			if !seen[c.ElementID] {
				return nil, apperror.ValidationFailed(field, fmt.Sprintf("condition refers to unknown element %q", c.ElementID))
			}
		}
		if out[i].Conditions == nil {
			out[i].Conditions = []model.FormCondition{}
		}
	}
	return out, nil
}
