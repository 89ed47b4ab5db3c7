package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"tutorado/internal/codec"
	"tutorado/internal/store"
)

var _ store.Backend = (*DB)(nil)

// dateColumns hold DATE values; an empty string is written as NULL.
var dateColumns = map[string]bool{"birth_date": true, "date": true}

func (db *DB) Select(ctx context.Context, table string, columns []string, order store.Order) ([]codec.Row, error) {
	rows, err := db.QueryContext(ctx, selectQuery(table, columns, order))
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return out, nil
}

func (db *DB) Get(ctx context.Context, table string, columns []string, id string) (codec.Row, error) {
	rows, err := db.QueryContext(ctx, getQuery(table, columns), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", table, id, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, store.ErrNotFound
	}
	return out[0], nil
}

func (db *DB) Upsert(ctx context.Context, table string, row codec.Row) (codec.Row, error) {
	cols := sortedColumns(row)
	rows, err := db.QueryContext(ctx, upsertQuery(table, cols), args(row, cols)...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("upsert into %s returned no row", table)
	}
	return out[0], nil
}

func (db *DB) Delete(ctx context.Context, table string, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pq.QuoteIdentifier(table), pq.QuoteIdentifier(store.KeyColumn))
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	return nil
}

func (db *DB) Insert(ctx context.Context, table string, row codec.Row) error {
	cols := sortedColumns(row)
	if _, err := db.ExecContext(ctx, insertQuery(table, cols), args(row, cols)...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func selectQuery(table string, columns []string, order store.Order) string {
	query := fmt.Sprintf("SELECT %s FROM %s", columnList(columns), pq.QuoteIdentifier(table))
	if order.Column != "" {
		dir := "ASC"
		if order.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", pq.QuoteIdentifier(order.Column), dir)
	}
	return query
}

func getQuery(table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1",
		columnList(columns), pq.QuoteIdentifier(table), pq.QuoteIdentifier(store.KeyColumn))
}

func upsertQuery(table string, cols []string) string {
	var b strings.Builder
	b.WriteString(insertQuery(table, cols))
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", pq.QuoteIdentifier(store.KeyColumn))

	var sets []string
	for _, c := range cols {
		if c == store.KeyColumn {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(c), pq.QuoteIdentifier(c)))
	}
	if len(sets) == 0 {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(store.KeyColumn), pq.QuoteIdentifier(store.KeyColumn)))
	}
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" RETURNING *")
	return b.String()
}

func insertQuery(table string, cols []string) string {
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

func columnList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func sortedColumns(row codec.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func args(row codec.Row, cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		v := row[c]
		switch val := v.(type) {
		case []string:
			v = pq.Array(val)
		case string:
			if val == "" && dateColumns[c] {
				v = nil
			}
		}
		out[i] = v
	}
	return out
}

func scanRows(rows *sql.Rows) ([]codec.Row, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	out := []codec.Row{}
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(codec.Row, len(types))
		for i, t := range types {
			v, err := fromDriver(t.DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", t.Name(), err)
			}
			row[t.Name()] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func fromDriver(typeName string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if strings.HasPrefix(typeName, "_") {
		var arr pq.StringArray
		if err := arr.Scan(v); err != nil {
			return nil, err
		}
		return []string(arr), nil
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return v, nil
}
