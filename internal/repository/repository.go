// Package repository is the only code that talks to the row store.
//
// The Translator takes an operation descriptor (collection, kind, payload,
// filters), checks it, sends it to a Store and normalises the reply. Codecs
// in this package convert between store rows and the model types.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/rowstore"
)

// Store executes one request against a row store. rowstore.Client does it
// over HTTP; sqlite.DB does it in-process.
type Store interface {
	Do(ctx context.Context, req rowstore.Request) (*rowstore.Reply, error)
}

// Op describes one store operation.
type Op struct {
	Collection string
	Kind       rowstore.Operation
	Payload    any
	Filters    *rowstore.Filters
}

// Result is the normalised reply: the rows the store returned, or one
// {<groupBy>: value, count: n} row per group for grouped selects.
type Result struct {
	Rows []rowstore.Row
}

// First returns the first row, if any.
func (r *Result) First() (rowstore.Row, bool) {
	if r == nil || len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// Counts reads a grouped select result into value -> count.
func (r *Result) Counts(field string) (map[string]int, error) {
	counts := make(map[string]int, len(r.Rows))
	for _, row := range r.Rows {
		key := fmt.Sprint(row[field])
		n, err := toInt(row["count"])
		if err != nil {
			return nil, fmt.Errorf("count for %s=%s: %w", field, key, err)
		}
		counts[key] = n
	}
	return counts, nil
}

// Translator validates operation descriptors and executes them against a
// Store. It holds no mutable state and is safe for concurrent use. It never
// retries.
type Translator struct {
	store  Store
	logger *slog.Logger
}

func NewTranslator(store Store, logger *slog.Logger) *Translator {
	return &Translator{store: store, logger: logger}
}

// Execute runs op.
//
//   - select: returns the matching rows, or group counts when GroupBy is set.
//     A nil Filters reads the whole collection; a non-nil Filters that
//     constrains nothing is rejected with MissingFilter.
//   - insert: returns the inserted rows with store-assigned fields.
//   - update: applies Payload to rows matching Filters.Eq and returns them.
//     When the store succeeds without echoing rows, the rows are re-read by
//     the first eq field so the caller always sees post-update state.
//   - delete: removes rows matching Filters.Eq.
//
// update and delete without an eq filter fail with MissingFilter before any
// store call. Unknown kinds fail with UnsupportedOperation. Transport and
// store-reported failures come back as Store errors.
func (t *Translator) Execute(ctx context.Context, op Op) (*Result, error) {
	switch op.Kind {
	case rowstore.OpSelect:
		if op.Filters != nil && op.Filters.IsEmpty() {
			return nil, apperror.MissingFilter(string(op.Kind), op.Collection)
		}
		if emptyIn(op.Filters) {
			// An empty membership list can match nothing; skip the round trip.
			return &Result{Rows: []rowstore.Row{}}, nil
		}

	case rowstore.OpInsert:
		rows, err := rowstore.Rows(op.Payload)
		if err != nil {
			return nil, apperror.ValidationFailed("payload", err.Error())
		}
		if len(rows) == 0 {
			return nil, apperror.ValidationFailed("payload", "insert requires at least one row")
		}

	case rowstore.OpUpdate, rowstore.OpDelete:
		if op.Filters == nil || len(op.Filters.Eq) == 0 {
			return nil, apperror.MissingFilter(string(op.Kind), op.Collection)
		}
		if op.Kind == rowstore.OpUpdate && op.Payload == nil {
			return nil, apperror.ValidationFailed("payload", "update requires a payload")
		}

	default:
		return nil, apperror.UnsupportedOperation(string(op.Kind))
	}

	rows, err := t.do(ctx, rowstore.Request{
		Operation: op.Kind,
		Table:     op.Collection,
		Data:      op.Payload,
		Filters:   op.Filters,
	})
	if err != nil {
		return nil, err
	}

	if op.Kind == rowstore.OpUpdate && len(rows) == 0 {
		key := op.Filters.Eq[0]
		t.logger.Debug("update echoed no rows, re-reading",
			slog.String("collection", op.Collection),
			slog.String("field", key.Field),
		)
		rows, err = t.do(ctx, rowstore.Request{
			Operation: rowstore.OpSelect,
			Table:     op.Collection,
			Filters:   &rowstore.Filters{Eq: rowstore.Eq{key}},
		})
		if err != nil {
			return nil, err
		}
	}

	if rows == nil {
		rows = []rowstore.Row{}
	}
	return &Result{Rows: rows}, nil
}

// Select is shorthand for a select Execute.
func (t *Translator) Select(ctx context.Context, collection string, filters *rowstore.Filters) (*Result, error) {
	return t.Execute(ctx, Op{Collection: collection, Kind: rowstore.OpSelect, Filters: filters})
}

// Insert is shorthand for an insert Execute.
func (t *Translator) Insert(ctx context.Context, collection string, payload any) (*Result, error) {
	return t.Execute(ctx, Op{Collection: collection, Kind: rowstore.OpInsert, Payload: payload})
}

// Update is shorthand for an update Execute.
func (t *Translator) Update(ctx context.Context, collection string, payload any, eq rowstore.Eq) (*Result, error) {
	return t.Execute(ctx, Op{Collection: collection, Kind: rowstore.OpUpdate, Payload: payload, Filters: &rowstore.Filters{Eq: eq}})
}

// Delete is shorthand for a delete Execute.
func (t *Translator) Delete(ctx context.Context, collection string, eq rowstore.Eq) error {
	_, err := t.Execute(ctx, Op{Collection: collection, Kind: rowstore.OpDelete, Filters: &rowstore.Filters{Eq: eq}})
	return err
}

func (t *Translator) do(ctx context.Context, req rowstore.Request) ([]rowstore.Row, error) {
	reply, err := t.store.Do(ctx, req)
	if err != nil {
		t.logger.Error("row store call failed",
			slog.String("operation", string(req.Operation)),
			slog.String("collection", req.Table),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Store(err.Error(), err)
	}
	if reply == nil || !reply.Success {
		msg := "row store reported failure"
		if reply != nil && reply.Error != "" {
			msg = reply.Error
		}
		return nil, apperror.Store(msg, nil)
	}

	t.logger.Debug("row store call",
		slog.String("operation", string(req.Operation)),
		slog.String("collection", req.Table),
		slog.Int("rows", len(reply.Data)),
	)
	return reply.Data, nil
}

func emptyIn(f *rowstore.Filters) bool {
	if f == nil {
		return false
	}
	for _, values := range f.In {
		if len(values) == 0 {
			return true
		}
	}
	return false
}

var errNotNumber = errors.New("not a number")

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("%w: %T", errNotNumber, v)
}
