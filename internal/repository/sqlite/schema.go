package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// kind decides how a column's values are encoded into SQLite and decoded back
// into the JSON-shaped rows the contract returns.
type kind int

const (
	kindText kind = iota
	kindBool
	kindInt
	kindJSON
	kindTime
)

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type column struct {
	name string
	kind kind
	ddl  string
}

type table struct {
	columns []column
	byName  map[string]column
	indexes []string
	// stamped columns are filled with the current time on insert when the
	// caller leaves them out.
	stamped []string
}

func newTable(cols []column, stamped []string, indexes ...string) table {
	t := table{columns: cols, byName: make(map[string]column, len(cols)), indexes: indexes, stamped: stamped}
	for _, c := range cols {
		t.byName[c.name] = c
	}
	return t
}

var tableOrder = []string{"forms", "form_elements", "form_responses"}

var schema = map[string]table{
	"forms": newTable([]column{
		{"id", kindText, "TEXT PRIMARY KEY"},
		{"title", kindText, "TEXT NOT NULL DEFAULT ''"},
		{"description", kindText, "TEXT NOT NULL DEFAULT ''"},
		{"status", kindText, "TEXT NOT NULL DEFAULT 'draft'"},
		{"require_login", kindBool, "INTEGER NOT NULL DEFAULT 0"},
		{"share_id", kindText, "TEXT UNIQUE"},
		{"created_by", kindText, "TEXT"},
		{"created_by_username", kindText, "TEXT"},
		{"created_at", kindTime, "TEXT NOT NULL"},
		{"updated_at", kindTime, "TEXT NOT NULL"},
	}, []string{"created_at", "updated_at"},
		`CREATE INDEX IF NOT EXISTS idx_forms_created_by ON forms(created_by)`,
	),
	"form_elements": newTable([]column{
		{"id", kindText, "TEXT PRIMARY KEY"},
		{"form_id", kindText, "TEXT NOT NULL"},
		{"element_id", kindText, "TEXT NOT NULL"},
		{"type", kindText, "TEXT NOT NULL"},
		{"label", kindText, "TEXT NOT NULL DEFAULT ''"},
		{"required", kindBool, "INTEGER NOT NULL DEFAULT 0"},
		{"properties", kindJSON, "TEXT NOT NULL DEFAULT '{}'"},
		{"conditions", kindJSON, "TEXT NOT NULL DEFAULT '[]'"},
		{"order", kindInt, "INTEGER NOT NULL DEFAULT 0"},
		{"created_at", kindTime, "TEXT NOT NULL"},
	}, []string{"created_at"},
		`CREATE INDEX IF NOT EXISTS idx_form_elements_form_id ON form_elements(form_id)`,
	),
	"form_responses": newTable([]column{
		{"id", kindText, "TEXT PRIMARY KEY"},
		{"form_id", kindText, "TEXT NOT NULL"},
		{"respondent_id", kindText, "TEXT"},
		{"data", kindJSON, "TEXT NOT NULL DEFAULT '{}'"},
		{"status", kindText, "TEXT NOT NULL DEFAULT 'complete'"},
		{"created_at", kindTime, "TEXT NOT NULL"},
	}, []string{"created_at"},
		`CREATE INDEX IF NOT EXISTS idx_form_responses_form_id ON form_responses(form_id)`,
		`CREATE INDEX IF NOT EXISTS idx_form_responses_respondent_id ON form_responses(respondent_id)`,
	),
}

// encode converts a decoded-JSON (or typed Go) value into what the driver
// stores for a column of kind k.
func (k kind) encode(v any) (any, error) {
	if v == nil {
		if k == kindJSON {
			return "null", nil
		}
		return nil, nil
	}

	switch k {
	case kindText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil

	case kindBool:
		switch b := v.(type) {
		case bool:
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		case float64:
			return boolInt(b != 0), nil
		case int:
			return boolInt(b != 0), nil
		case int64:
			return boolInt(b != 0), nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)

	case kindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int64(n), nil
		case json.Number:
			return n.Int64()
		}
		return nil, fmt.Errorf("expected integer, got %T", v)

	case kindJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil

	case kindTime:
		switch ts := v.(type) {
		case time.Time:
			return ts.UTC().Format(timeLayout), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, fmt.Errorf("expected RFC 3339 timestamp: %w", err)
			}
			return parsed.UTC().Format(timeLayout), nil
		}
		return nil, fmt.Errorf("expected timestamp, got %T", v)
	}
	return nil, fmt.Errorf("unknown column kind %d", k)
}

// decode turns a scanned driver value back into a JSON-shaped value.
func (k kind) decode(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}

	switch k {
	case kindBool:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("expected integer boolean, got %T", v)
		}
		return n != 0, nil
	case kindJSON:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected JSON text, got %T", v)
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return v, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
