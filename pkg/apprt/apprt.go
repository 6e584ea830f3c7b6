// Package apprt is the runtime surface generated endpoint handlers are
// written against: request context, source-bag resolution, comparator
// conditions and the single storage operation each handler performs.
package apprt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"flowforge/internal/ident"
	"flowforge/pkg/store"
)

// RequestContext carries the pieces of an HTTP request a generated
// handler may consume.
type RequestContext struct {
	RawBody    []byte
	Body       map[string]any
	Query      map[string]string
	PathParams map[string]string
}

// ReadBody parses the raw request body. Generated handlers call it only
// when the declared action or a source expression needs body access.
func (rc *RequestContext) ReadBody() error {
	if len(rc.RawBody) == 0 {
		return fmt.Errorf("request body required")
	}
	if err := json.Unmarshal(rc.RawBody, &rc.Body); err != nil {
		return fmt.Errorf("parse request body: %w", err)
	}
	return nil
}

// Bag assembles the source bag source expressions resolve against.
func (rc *RequestContext) Bag() map[string]any {
	return map[string]any{
		ident.ScopeBody:   rc.Body,
		ident.ScopeQuery:  rc.Query,
		ident.ScopeParams: rc.PathParams,
	}
}

// Result is the envelope every generated handler returns.
type Result struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Run executes a handler body, converting any error or panic into a
// failed Result instead of letting it propagate.
func Run(fn func() (any, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{OK: false, Error: fmt.Sprintf("handler panic: %v", r)}
		}
	}()
	data, err := fn()
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}
	return Result{OK: true, Data: data}
}

var resolver = ident.NewResolver()

// Resolve evaluates a declared source expression against the bag.
func Resolve(bag map[string]any, source string) any {
	return resolver.Resolve(source, bag)
}

// Cond is one comparator condition; multiple conditions AND together.
type Cond struct {
	Column string
	Op     string
	Value  any
}

func Eq(column string, v any) Cond { return Cond{Column: column, Op: "=", Value: v} }
func Ne(column string, v any) Cond { return Cond{Column: column, Op: "!=", Value: v} }
func Gt(column string, v any) Cond { return Cond{Column: column, Op: ">", Value: v} }
func Ge(column string, v any) Cond { return Cond{Column: column, Op: ">=", Value: v} }
func Lt(column string, v any) Cond { return Cond{Column: column, Op: "<", Value: v} }
func Le(column string, v any) Cond { return Cond{Column: column, Op: "<=", Value: v} }

func whereClause(pb store.ParamBuilder, conds []Cond) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch c.Op {
		case "=", "!=", ">", ">=", "<", "<=":
		default:
			return "", fmt.Errorf("unsupported operator %q", c.Op)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", c.Column, c.Op, pb.Add(c.Value)))
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// Select returns the rows matching the conditions; zero conditions
// selects all rows.
func Select(ctx context.Context, st *store.Store, table string, conds ...Cond) ([]map[string]any, error) {
	pb := st.Dialect.NewParamBuilder()
	where, err := whereClause(pb, conds)
	if err != nil {
		return nil, err
	}
	rows, err := store.QueryRows(ctx, st.DB, "SELECT * FROM "+table+where, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// Insert writes one record built from a resolved field mapping and
// returns it.
func Insert(ctx context.Context, st *store.Store, table string, values map[string]any) (map[string]any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("insert into %s: no values", table)
	}
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	pb := st.Dialect.NewParamBuilder()
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = pb.Add(values[c])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := store.Exec(ctx, st.DB, stmt, pb.Params()...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return values, nil
}

// Delete removes the rows matching the conditions. Deleting with zero
// conditions is refused outright; it is never executed.
func Delete(ctx context.Context, st *store.Store, table string, conds ...Cond) (int64, error) {
	if len(conds) == 0 {
		return 0, fmt.Errorf("delete from %s refused: no conditions", table)
	}
	pb := st.Dialect.NewParamBuilder()
	where, err := whereClause(pb, conds)
	if err != nil {
		return 0, err
	}
	n, err := store.Exec(ctx, st.DB, "DELETE FROM "+table+where, pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return n, nil
}
