// Package rowstore holds the wire contract of the remote row store and an HTTP
// client for it.
//
// The store is reached through a single endpoint that accepts
//
//	{"operation": "select|insert|update|delete", "table": "...", "data": ..., "filters": {...}}
//
// and answers {"success": true, "data": [...]} or {"error": "..."}.
package rowstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operation is the kind of statement a Request asks the store to run.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Match is one equality constraint.
type Match struct {
	Field string
	Value any
}

// Eq is an AND of equality constraints. It is a slice rather than a map
// because its order is meaningful: the first field is the key used to
// re-fetch rows after an update. On the wire it is a JSON object whose keys
// keep that order.
type Eq []Match

// OrderBy is one sort key.
type OrderBy struct {
	Field     string
	Direction Direction
}

// Order is a list of sort keys, most significant first. Like Eq it travels as
// an ordered JSON object: {"updated_at": "desc"}.
type Order []OrderBy

// Filters constrains a Request. The zero value constrains nothing.
type Filters struct {
	Eq      Eq               `json:"eq,omitempty"`
	In      map[string][]any `json:"in,omitempty"`
	Order   Order            `json:"order,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	GroupBy string           `json:"groupBy,omitempty"`
}

// IsEmpty reports whether f carries no constraint at all.
func (f *Filters) IsEmpty() bool {
	return f == nil || (len(f.Eq) == 0 && len(f.In) == 0 && len(f.Order) == 0 &&
		f.Limit == 0 && f.GroupBy == "")
}

// Request is the body POSTed to the store endpoint.
type Request struct {
	Operation Operation `json:"operation"`
	Table     string    `json:"table"`
	Data      any       `json:"data,omitempty"`
	Filters   *Filters  `json:"filters,omitempty"`
}

// Row is one record as the store returns it.
type Row map[string]any

// Reply is the store's answer.
type Reply struct {
	Success bool   `json:"success"`
	Data    []Row  `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MarshalJSON writes the constraints as an object in slice order.
func (e Eq) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, m.Field, m.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping its key order.
func (e *Eq) UnmarshalJSON(data []byte) error {
	var out Eq
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Match{Field: key, Value: v})
		return nil
	})
	if err != nil {
		return fmt.Errorf("rowstore: decoding eq filter: %w", err)
	}
	*e = out
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ob := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, ob.Field, ob.Direction); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var out Order
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var dir Direction
		if err := dec.Decode(&dir); err != nil {
			return err
		}
		if dir != Asc && dir != Desc {
			return fmt.Errorf("invalid direction %q for %s", dir, key)
		}
		out = append(out, OrderBy{Field: key, Direction: dir})
		return nil
	})
	if err != nil {
		return fmt.Errorf("rowstore: decoding order: %w", err)
	}
	*o = out
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func decodeOrderedObject(data []byte, member func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil // JSON null
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected key, got %v", tok)
		}
		if err := member(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing brace
	return err
}

// Rows normalises insert/update payloads to a list of rows. It accepts a
// single object or a list of objects, in either their decoded-JSON or typed
// forms.
func Rows(data any) ([]Row, error) {
	switch d := data.(type) {
	case nil:
		return nil, nil
	case Row:
		return []Row{d}, nil
	case map[string]any:
		return []Row{d}, nil
	case []Row:
		return d, nil
	case []map[string]any:
		rows := make([]Row, len(d))
		for i, m := range d {
			rows[i] = m
		}
		return rows, nil
	case []any:
		rows := make([]Row, 0, len(d))
		for i, item := range d {
			switch m := item.(type) {
			case map[string]any:
				rows = append(rows, m)
			case Row:
				rows = append(rows, m)
			default:
				return nil, fmt.Errorf("row %d is %T, not an object", i, item)
			}
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("data is %T, not an object or list of objects", data)
	}
}
