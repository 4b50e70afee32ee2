// Package store is a generic table client over database/sql. It is the only
// persistence surface the domain services see: equality/range/ordering
// filtered selects plus single-table inserts, updates and deletes. No
// transactions span multiple calls; each mutation is individually atomic.
package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Row is a single table row keyed by column name.
type Row = map[string]any

// Op is a filter operator.
type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
	OpGte     Op = "gte"
	OpLte     Op = "lte"
	OpILike   Op = "ilike"
	OpIn      Op = "in"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter      { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value any) Filter     { return Filter{Column: column, Op: OpNeq, Value: value} }
func IsNull(column string) Filter             { return Filter{Column: column, Op: OpIsNull} }
func NotNull(column string) Filter            { return Filter{Column: column, Op: OpNotNull} }
func Gte(column string, value any) Filter     { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value any) Filter     { return Filter{Column: column, Op: OpLte, Value: value} }
func ILike(column string, value string) Filter {
	return Filter{Column: column, Op: OpILike, Value: value}
}
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Query describes a select: filters, ordering and an offset/limit window.
// When Count is set the total number of matching rows (ignoring the window)
// is returned alongside the page.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int
	Count      bool
}

// Client executes table operations against a SQL database. Tables are
// expected to carry a TEXT `id` primary key.
type Client struct {
	db *sql.DB
}

// New creates a table client over db.
func New(db *sql.DB) *Client {
	return &Client{db: db}
}

// Select returns the rows matching q. The second result is the total match
// count when q.Count is set, otherwise the number of returned rows.
func (c *Client) Select(table string, q Query) ([]Row, int, error) {
	where, args, err := buildWhere(q.Filters)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM " + table + where
	if q.OrderBy != "" {
		query += " ORDER BY " + q.OrderBy
		if q.Descending {
			query += " DESC"
		}
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", q.Offset)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, 0, err
	}

	total := len(result)
	if q.Count {
		countQuery := "SELECT COUNT(*) FROM " + table + where
		if err := c.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count %s: %w", table, err)
		}
	}

	return result, total, nil
}

// Insert writes a new row and returns it.
func (c *Client) Insert(table string, row Row) (Row, error) {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		args[i] = row[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := c.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}

	inserted := make(Row, len(row))
	for k, v := range row {
		inserted[k] = v
	}
	return inserted, nil
}

// Update patches all rows matching filters and returns them as stored.
func (c *Client) Update(table string, filters []Filter, patch Row) ([]Row, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("update %s: empty patch", table)
	}

	// Capture the matching ids first; the patch may change filtered columns.
	ids, err := c.matchingIDs(table, filters)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	columns := make([]string, 0, len(patch))
	for col := range patch {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(ids))
	for i, col := range columns {
		sets[i] = col + " = ?"
		args = append(args, patch[col])
	}
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id IN (%s)",
		table, strings.Join(sets, ", "), idPlaceholders(len(ids)))
	if _, err := c.db.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}

	updated, _, err := c.Select(table, Query{Filters: []Filter{In("id", ids)}})
	return updated, err
}

// Delete removes all rows matching filters and returns how many went away.
func (c *Client) Delete(table string, filters []Filter) (int, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}

	result, err := c.db.Exec("DELETE FROM "+table+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (c *Client) matchingIDs(table string, filters []Filter) ([]string, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.Query("SELECT id FROM "+table+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select ids %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func idPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func buildWhere(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			clauses = append(clauses, f.Column+" = ?")
			args = append(args, f.Value)
		case OpNeq:
			clauses = append(clauses, f.Column+" != ?")
			args = append(args, f.Value)
		case OpIsNull:
			clauses = append(clauses, f.Column+" IS NULL")
		case OpNotNull:
			clauses = append(clauses, f.Column+" IS NOT NULL")
		case OpGte:
			clauses = append(clauses, f.Column+" >= ?")
			args = append(args, f.Value)
		case OpLte:
			clauses = append(clauses, f.Column+" <= ?")
			args = append(args, f.Value)
		case OpILike:
			clauses = append(clauses, "LOWER("+f.Column+") LIKE '%' || LOWER(?) || '%'")
			args = append(args, f.Value)
		case OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return "", nil, fmt.Errorf("in filter on %s: value must be []string", f.Column)
			}
			if len(values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, f.Column+" IN ("+idPlaceholders(len(values))+")")
			for _, v := range values {
				args = append(args, v)
			}
		default:
			return "", nil, fmt.Errorf("unknown filter op %q on %s", f.Op, f.Column)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
