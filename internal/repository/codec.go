package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/formsmith/internal/model"
	"github.com/sakif/formsmith/internal/rowstore"
)

// Collections in the row store.
const (
	Forms     = "forms"
	Elements  = "form_elements"
	Responses = "form_responses"
)

// Column names shared by more than one call site.
const (
	ColID           = "id"
	ColFormID       = "form_id"
	ColShareID      = "share_id"
	ColCreatedBy    = "created_by"
	ColRespondentID = "respondent_id"
	ColCreatedAt    = "created_at"
	ColUpdatedAt    = "updated_at"
	ColOrder        = "order"
)

// Timestamp formats t the way rows carry times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormRow builds the column values written for a form's editable metadata.
// Identity columns (id, share_id, created_by) are added by the caller because
// which of them may be written depends on create versus update.
func FormRow(in model.FormInput, updatedAt time.Time) rowstore.Row {
	return rowstore.Row{
		"title":         in.Title,
		"description":   in.Description,
		"status":        string(in.Status),
		"require_login": in.RequireLogin,
		ColUpdatedAt:    Timestamp(updatedAt),
	}
}

// ElementRows tags each element with its form and its position. Order is the
// slice index regardless of what the caller put in FormElement.Order.
func ElementRows(formID string, elements []model.FormElement) []rowstore.Row {
	rows := make([]rowstore.Row, len(elements))
	for i, el := range elements {
		conditions := el.Conditions
		if conditions == nil {
			conditions = []model.FormCondition{}
		}
		rows[i] = rowstore.Row{
			ColFormID:    formID,
			"element_id": el.ElementID,
			"type":       string(el.Type),
			"label":      el.Label,
			"required":   el.Required,
			"properties": el.Properties,
			"conditions": conditions,
			ColOrder:     i,
		}
	}
	return rows
}

// DecodeForm reads a forms row. Elements are left empty.
func DecodeForm(row rowstore.Row) (model.Form, error) {
	createdAt, err := timeField(row, ColCreatedAt)
	if err != nil {
		return model.Form{}, err
	}
	updatedAt, err := timeField(row, ColUpdatedAt)
	if err != nil {
		return model.Form{}, err
	}
	status := model.FormStatus(stringField(row, "status"))
	if status == "" {
		status = model.StatusDraft
	}

	return model.Form{
		ID:                stringField(row, ColID),
		Title:             stringField(row, "title"),
		Description:       stringField(row, "description"),
		Status:            status,
		RequireLogin:      boolField(row, "require_login"),
		ShareID:           stringField(row, ColShareID),
		CreatedBy:         stringField(row, ColCreatedBy),
		CreatedByUsername: stringField(row, "created_by_username"),
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		Elements:          []model.FormElement{},
	}, nil
}

// DecodeSummary reads a forms row for a dashboard listing.
func DecodeSummary(row rowstore.Row) (model.FormSummary, error) {
	f, err := DecodeForm(row)
	if err != nil {
		return model.FormSummary{}, err
	}
	return model.FormSummary{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		Status:       f.Status,
		RequireLogin: f.RequireLogin,
		ShareID:      f.ShareID,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}, nil
}

// DecodeElement reads a form_elements row into the public element shape. The
// store's row id is dropped.
func DecodeElement(row rowstore.Row) (model.FormElement, error) {
	el := model.FormElement{
		ElementID:  stringField(row, "element_id"),
		Type:       model.ElementType(stringField(row, "type")),
		Label:      stringField(row, "label"),
		Required:   boolField(row, "required"),
		Conditions: []model.FormCondition{},
	}

	order, err := toInt(row[ColOrder])
	if err != nil && row[ColOrder] != nil {
		return model.FormElement{}, fmt.Errorf("element %s order: %w", el.ElementID, err)
	}
	el.Order = order

	if err := jsonField(row, "properties", &el.Properties); err != nil {
		return model.FormElement{}, fmt.Errorf("element %s properties: %w", el.ElementID, err)
	}
	if err := jsonField(row, "conditions", &el.Conditions); err != nil {
		return model.FormElement{}, fmt.Errorf("element %s conditions: %w", el.ElementID, err)
	}
	if el.Conditions == nil {
		el.Conditions = []model.FormCondition{}
	}
	return el, nil
}

// DecodeResponse reads a form_responses row.
func DecodeResponse(row rowstore.Row) (model.FormResponse, error) {
	createdAt, err := timeField(row, ColCreatedAt)
	if err != nil {
		return model.FormResponse{}, err
	}
	resp := model.FormResponse{
		ID:           stringField(row, ColID),
		FormID:       stringField(row, ColFormID),
		RespondentID: stringField(row, ColRespondentID),
		Status:       model.ResponseStatus(stringField(row, "status")),
		CreatedAt:    createdAt,
	}
	if err := jsonField(row, "data", &resp.Data); err != nil {
		return model.FormResponse{}, fmt.Errorf("response %s data: %w", resp.ID, err)
	}
	if resp.Data == nil {
		resp.Data = map[string]any{}
	}
	return resp, nil
}

func stringField(row rowstore.Row, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolField(row rowstore.Row, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func timeField(row rowstore.Row, key string) (time.Time, error) {
	switch v := row[key].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", key, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("%s: unexpected %T", key, v)
	}
}

// jsonField decodes a JSON-valued column into dst. Stores hand these back
// either already decoded or as JSON text; both are accepted.
func jsonField(row rowstore.Row, key string, dst any) error {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	var raw []byte
	if s, isText := v.(string); isText {
		raw = []byte(s)
	} else {
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dst)
}
