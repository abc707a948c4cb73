package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/formsmith/internal/apperror"
	"github.com/sakif/formsmith/internal/repository"
	"github.com/sakif/formsmith/internal/rowstore"
)

// *DB can be handed straight to the Translator as its store.
var _ repository.Store = (*DB)(nil)

// Do executes one rowstore request.
//
// Malformed requests (unknown table or column, wrong value types, missing
// filters) come back as apperror validation/filter errors; anything the
// driver rejects is returned wrapped.
func (db *DB) Do(ctx context.Context, req rowstore.Request) (*rowstore.Reply, error) {
	t, ok := schema[req.Table]
	if !ok {
		return nil, apperror.ValidationFailed("table", fmt.Sprintf("unknown table %q", req.Table))
	}

	var (
		rows []rowstore.Row
		err  error
	)
	switch req.Operation {
	case rowstore.OpSelect:
		rows, err = db.selectRows(ctx, req.Table, t, req.Filters)
	case rowstore.OpInsert:
		rows, err = db.insertRows(ctx, req.Table, t, req.Data)
	case rowstore.OpUpdate:
		rows, err = db.updateRows(ctx, req.Table, t, req.Data, req.Filters)
	case rowstore.OpDelete:
		err = db.deleteRows(ctx, req.Table, t, req.Filters)
	default:
		return nil, apperror.UnsupportedOperation(string(req.Operation))
	}
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []rowstore.Row{}
	}
	return &rowstore.Reply{Success: true, Data: rows}, nil
}

func (db *DB) selectRows(ctx context.Context, name string, t table, f *rowstore.Filters) ([]rowstore.Row, error) {
	where, args, err := buildWhere(t, f)
	if err != nil {
		return nil, err
	}

	if f != nil && f.GroupBy != "" {
		return db.groupCount(ctx, name, t, f, where, args)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", columnList(t), quote(name), where)

	if f != nil {
		orderBy, err := buildOrder(f.Order, func(field string) bool {
			_, ok := t.byName[field]
			return ok
		})
		if err != nil {
			return nil, err
		}
		query += orderBy
		query += limitClause(f.Limit)
	}

	return db.queryRows(ctx, db.conn, t, query, args)
}

// groupCount answers a groupBy select with one {<field>: value, count: n} row
// per distinct value.
func (db *DB) groupCount(ctx context.Context, name string, t table, f *rowstore.Filters, where string, args []any) ([]rowstore.Row, error) {
	group, ok := t.byName[f.GroupBy]
	if !ok {
		return nil, apperror.ValidationFailed("groupBy", fmt.Sprintf("unknown column %q on %s", f.GroupBy, name))
	}

	query := fmt.Sprintf("SELECT %s, COUNT(*) AS \"count\" FROM %s%s GROUP BY %s",
		quote(group.name), quote(name), where, quote(group.name))

	orderBy, err := buildOrder(f.Order, func(field string) bool {
		return field == group.name || field == "count"
	})
	if err != nil {
		return nil, err
	}
	query += orderBy + limitClause(f.Limit)

	sqlRows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting %s by %s: %w", name, group.name, err)
	}
	defer sqlRows.Close()

	var out []rowstore.Row
	for sqlRows.Next() {
		var key any
		var count int64
		if err := sqlRows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning count row: %w", err)
		}
		val, err := group.kind.decode(key)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decoding %s: %w", group.name, err)
		}
		out = append(out, rowstore.Row{group.name: val, "count": count})
	}
	return out, sqlRows.Err()
}

func (db *DB) insertRows(ctx context.Context, name string, t table, data any) ([]rowstore.Row, error) {
	rows, err := rowstore.Rows(data)
	if err != nil {
		return nil, apperror.ValidationFailed("data", err.Error())
	}
	if len(rows) == 0 {
		return nil, apperror.ValidationFailed("data", "insert requires at least one row")
	}

	// One request, one transaction: a bulk insert lands completely or not at all.
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var out []rowstore.Row
	for i, row := range rows {
		values := make(map[string]any, len(row)+3)
		for k, v := range row {
			values[k] = v
		}
		if id, ok := values["id"]; !ok || id == nil || id == "" {
			values["id"] = xid.New().String()
		}
		for _, col := range t.stamped {
			if v, ok := values[col]; !ok || v == nil {
				values[col] = now
			}
		}

		cols, args, err := encodeValues(t, name, values)
		if err != nil {
			return nil, err
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			quote(name), joinQuoted(cols), placeholders, columnList(t))

		inserted, err := db.queryRows(ctx, tx, t, query, args)
		if err != nil {
			return nil, fmt.Errorf("sqlite: inserting %s row %d: %w", name, i, err)
		}
		out = append(out, inserted...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing insert: %w", err)
	}
	return out, nil
}

func (db *DB) updateRows(ctx context.Context, name string, t table, data any, f *rowstore.Filters) ([]rowstore.Row, error) {
	if f == nil || len(f.Eq) == 0 {
		return nil, apperror.MissingFilter(string(rowstore.OpUpdate), name)
	}

	rows, err := rowstore.Rows(data)
	if err != nil || len(rows) != 1 {
		return nil, apperror.ValidationFailed("data", "update requires exactly one object of column values")
	}

	cols, setArgs, err := encodeValues(t, name, rows[0])
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, apperror.ValidationFailed("data", "update has no columns to set")
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}

	where, whereArgs, err := buildWhere(t, &rowstore.Filters{Eq: f.Eq, In: f.In})
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
		quote(name), strings.Join(sets, ", "), where, columnList(t))

	updated, err := db.queryRows(ctx, db.conn, t, query, append(setArgs, whereArgs...))
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating %s: %w", name, err)
	}
	return updated, nil
}

func (db *DB) deleteRows(ctx context.Context, name string, t table, f *rowstore.Filters) error {
	if f == nil || len(f.Eq) == 0 {
		return apperror.MissingFilter(string(rowstore.OpDelete), name)
	}

	where, args, err := buildWhere(t, &rowstore.Filters{Eq: f.Eq, In: f.In})
	if err != nil {
		return err
	}

	if _, err := db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", quote(name), where), args...); err != nil {
		return fmt.Errorf("sqlite: deleting from %s: %w", name, err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryRows runs a statement returning full rows of t and decodes them.
func (db *DB) queryRows(ctx context.Context, q queryer, t table, query string, args []any) ([]rowstore.Row, error) {
	sqlRows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	var out []rowstore.Row
	for sqlRows.Next() {
		raw := make([]any, len(t.columns))
		ptrs := make([]any, len(t.columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := sqlRows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(rowstore.Row, len(t.columns))
		for i, c := range t.columns {
			v, err := c.kind.decode(raw[i])
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", c.name, err)
			}
			row[c.name] = v
		}
		out = append(out, row)
	}
	return out, sqlRows.Err()
}

// buildWhere turns eq and in constraints into a WHERE clause. A nil value in
// eq matches NULL; an empty in-list matches nothing.
func buildWhere(t table, f *rowstore.Filters) (string, []any, error) {
	if f == nil {
		return "", nil, nil
	}

	var conds []string
	var args []any

	for _, m := range f.Eq {
		c, ok := t.byName[m.Field]
		if !ok {
			return "", nil, apperror.ValidationFailed(m.Field, fmt.Sprintf("unknown column %q", m.Field))
		}
		if m.Value == nil {
			conds = append(conds, quote(c.name)+" IS NULL")
			continue
		}
		v, err := c.kind.encode(m.Value)
		if err != nil {
			return "", nil, apperror.ValidationFailed(m.Field, fmt.Sprintf("eq %s: %v", m.Field, err))
		}
		conds = append(conds, quote(c.name)+" = ?")
		args = append(args, v)
	}

	// Sorted so the generated SQL is stable for a given filter.
	inFields := make([]string, 0, len(f.In))
	for field := range f.In {
		inFields = append(inFields, field)
	}
	sort.Strings(inFields)

	for _, field := range inFields {
		c, ok := t.byName[field]
		if !ok {
			return "", nil, apperror.ValidationFailed(field, fmt.Sprintf("unknown column %q", field))
		}
		values := f.In[field]
		if len(values) == 0 {
			conds = append(conds, "0 = 1")
			continue
		}
		marks := make([]string, len(values))
		for i, raw := range values {
			v, err := c.kind.encode(raw)
			if err != nil {
				return "", nil, apperror.ValidationFailed(field, fmt.Sprintf("in %s: %v", field, err))
			}
			marks[i] = "?"
			args = append(args, v)
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", quote(c.name), strings.Join(marks, ", ")))
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func buildOrder(order rowstore.Order, known func(string) bool) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, len(order))
	for i, o := range order {
		if !known(o.Field) {
			return "", apperror.ValidationFailed("order", fmt.Sprintf("cannot order by %q", o.Field))
		}
		dir := "ASC"
		if o.Direction == rowstore.Desc {
			dir = "DESC"
		}
		parts[i] = quote(o.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// encodeValues validates and encodes a column->value map, returning columns in
// schema order.
func encodeValues(t table, name string, values map[string]any) ([]string, []any, error) {
	for k := range values {
		if _, ok := t.byName[k]; !ok {
			return nil, nil, apperror.ValidationFailed(k, fmt.Sprintf("unknown column %q on %s", k, name))
		}
	}

	var cols []string
	var args []any
	for _, c := range t.columns {
		v, ok := values[c.name]
		if !ok {
			continue
		}
		enc, err := c.kind.encode(v)
		if err != nil {
			return nil, nil, apperror.ValidationFailed(c.name, fmt.Sprintf("%s: %v", c.name, err))
		}
		cols = append(cols, c.name)
		args = append(args, enc)
	}
	return cols, args, nil
}

func columnList(t table) string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return joinQuoted(names)
}

func joinQuoted(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}
