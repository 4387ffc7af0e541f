package query

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the statement type.
type Kind string

const (
	KindSelect Kind = "select"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Conditions are equality filters ANDed together. A nil value becomes IS NULL.
type Conditions map[string]any

// Values are column assignments for insert and update.
type Values map[string]any

// OnConflict turns an insert into insert-or-skip or an upsert.
// With no Update columns the conflicting row is left untouched (DO NOTHING).
type OnConflict struct {
	Columns []string
	Update  []string
}

// Request describes the statement to compose.
type Request struct {
	Kind       Kind
	Conditions Conditions

	// Where is a raw predicate fragment ANDed after the equality conditions.
	// It must use `?` placeholders; WhereArgs are bound in order.
	Where     string
	WhereArgs []any

	Join    string   // raw join fragment, e.g. "JOIN stores ON ..."
	Columns []string // explicit projection; defaults to all entity fields
	Suffix  string   // trailing clause, e.g. "ORDER BY threshold"

	Values  Values
	SetExpr map[string]string // raw assignments, e.g. "stamps": "stamps + 1"

	OnConflict *OnConflict
	Returning  []string
}

// Statement is a composed, not yet executed, SQL statement.
type Statement struct {
	SQL  string
	Args []any
}

// =============================================================================
// COMPOSER
// =============================================================================

// Composer builds statements for one dialect, optionally bound to a tenant.
type Composer struct {
	dialect  Dialect
	tenantID string
	schema   string
}

// New returns a composer. An empty tenantID leaves the composer unbound;
// use it only for tenant-independent tables.
func New(d Dialect, tenantID string) *Composer {
	return &Composer{dialect: d, tenantID: tenantID}
}

// WithSchema returns a copy of the composer that prefixes table names.
func (c *Composer) WithSchema(schema string) *Composer {
	cp := *c
	cp.schema = schema
	return &cp
}

// TenantID returns the bound tenant, if any.
func (c *Composer) TenantID() string { return c.tenantID }

// Dialect returns the composer's dialect.
func (c *Composer) Dialect() Dialect { return c.dialect }

// Compose builds the statement described by r against entity e.
func (c *Composer) Compose(e Entity, r Request) (Statement, error) {
	var (
		st  Statement
		err error
	)
	switch r.Kind {
	case KindSelect:
		st, err = c.composeSelect(e, r)
	case KindInsert:
		st, err = c.composeInsert(e, r)
	case KindUpdate:
		st, err = c.composeUpdate(e, r)
	case KindDelete:
		st, err = c.composeDelete(e, r)
	default:
		return Statement{}, fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if err != nil {
		return Statement{}, err
	}
	st.SQL = c.dialect.Rebind(st.SQL)
	return st, nil
}

// Select is shorthand for a select with equality conditions.
func (c *Composer) Select(e Entity, conds Conditions, suffix string) (Statement, error) {
	return c.Compose(e, Request{Kind: KindSelect, Conditions: conds, Suffix: suffix})
}

func (c *Composer) table(e Entity) string {
	if c.schema != "" {
		return c.schema + "." + e.Table
	}
	return e.Table
}

func (c *Composer) tenantBound(e Entity) bool {
	return c.tenantID != "" && e.Scoped()
}

// where assembles the WHERE clause: caller conditions, then the tenant
// condition, then the raw fragment.
func (c *Composer) where(e Entity, r Request, qualifyTenant bool) (string, []any, error) {
	var (
		parts []string
		args  []any
	)

	keys := make([]string, 0, len(r.Conditions))
	for k := range r.Conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := e.columnName(k); !ok {
			return "", nil, unknownField(e, k)
		}
		v := r.Conditions[k]
		if v == nil {
			parts = append(parts, k+" IS NULL")
			continue
		}
		parts = append(parts, k+" = ?")
		args = append(args, v)
	}

	if c.tenantBound(e) {
		col := e.TenantField
		if qualifyTenant {
			col = c.table(e) + "." + col
		}
		parts = append(parts, col+" = ?")
		args = append(args, c.tenantID)
	}

	if frag := trimWhere(r.Where); frag != "" {
		parts = append(parts, frag)
		args = append(args, r.WhereArgs...)
	}

	if len(parts) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func trimWhere(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "WHERE ") {
		s = strings.TrimSpace(s[6:])
	}
	return s
}

func (c *Composer) composeSelect(e Entity, r Request) (Statement, error) {
	cols := r.Columns
	if len(cols) == 0 {
		cols = e.Qualified()
		if c.schema != "" {
			for i, f := range e.Fields {
				cols[i] = c.table(e) + "." + f
			}
		}
	}

	where, args, err := c.where(e, r, true)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(c.table(e))
	if r.Join != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(r.Join))
	}
	b.WriteString(where)
	if r.Suffix != "" {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(r.Suffix))
	}
	return Statement{SQL: b.String(), Args: args}, nil
}

// orderedValues returns the assignments in entity field order.
func (c *Composer) orderedValues(e Entity, vals Values) ([]string, []any, error) {
	for k := range vals {
		if !e.HasField(k) {
			return nil, nil, unknownField(e, k)
		}
	}
	var (
		cols []string
		args []any
	)
	for _, f := range e.Fields {
		v, ok := vals[f]
		if !ok {
			continue
		}
		cols = append(cols, f)
		args = append(args, v)
	}
	return cols, args, nil
}

func (c *Composer) composeInsert(e Entity, r Request) (Statement, error) {
	vals := make(Values, len(r.Values)+1)
	for k, v := range r.Values {
		vals[k] = v
	}
	if c.tenantBound(e) {
		vals[e.TenantField] = c.tenantID
	}

	cols, args, err := c.orderedValues(e, vals)
	if err != nil {
		return Statement{}, err
	}
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("%w: insert into %s without values", ErrPrecondition, e.Table)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", c.table(e), strings.Join(cols, ", "), placeholders)

	if oc := r.OnConflict; oc != nil {
		for _, col := range append(append([]string{}, oc.Columns...), oc.Update...) {
			if !e.HasField(col) {
				return Statement{}, unknownField(e, col)
			}
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s)", strings.Join(oc.Columns, ", "))
		if len(oc.Update) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			sets := make([]string, len(oc.Update))
			for i, col := range oc.Update {
				sets[i] = col + " = excluded." + col
			}
			b.WriteString(" DO UPDATE SET ")
			b.WriteString(strings.Join(sets, ", "))
		}
	}

	if err := c.writeReturning(&b, e, r.Returning); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: b.String(), Args: args}, nil
}

func (c *Composer) composeUpdate(e Entity, r Request) (Statement, error) {
	if c.tenantBound(e) {
		if _, ok := r.Values[e.TenantField]; ok {
			return Statement{}, fmt.Errorf("%w: tenant field %s is not assignable", ErrPrecondition, e.TenantField)
		}
	}

	cols, args, err := c.orderedValues(e, r.Values)
	if err != nil {
		return Statement{}, err
	}
	sets := make([]string, 0, len(cols)+len(r.SetExpr))
	for _, col := range cols {
		sets = append(sets, col+" = ?")
	}

	exprCols := make([]string, 0, len(r.SetExpr))
	for col := range r.SetExpr {
		if !e.HasField(col) {
			return Statement{}, unknownField(e, col)
		}
		exprCols = append(exprCols, col)
	}
	sort.Strings(exprCols)
	for _, col := range exprCols {
		sets = append(sets, col+" = "+r.SetExpr[col])
	}
	if len(sets) == 0 {
		return Statement{}, fmt.Errorf("%w: update of %s without assignments", ErrPrecondition, e.Table)
	}

	where, whereArgs, err := c.where(e, r, false)
	if err != nil {
		return Statement{}, err
	}
	if where == "" {
		return Statement{}, &PreconditionError{Kind: KindUpdate, Table: e.Table}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s%s", c.table(e), strings.Join(sets, ", "), where)
	if err := c.writeReturning(&b, e, r.Returning); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: b.String(), Args: append(args, whereArgs...)}, nil
}

func (c *Composer) composeDelete(e Entity, r Request) (Statement, error) {
	where, args, err := c.where(e, r, false)
	if err != nil {
		return Statement{}, err
	}
	if where == "" {
		return Statement{}, &PreconditionError{Kind: KindDelete, Table: e.Table}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s%s", c.table(e), where)
	if err := c.writeReturning(&b, e, r.Returning); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: b.String(), Args: args}, nil
}

func (c *Composer) writeReturning(b *strings.Builder, e Entity, cols []string) error {
	if len(cols) == 0 {
		return nil
	}
	for _, col := range cols {
		if !e.HasField(col) {
			return unknownField(e, col)
		}
	}
	b.WriteString(" RETURNING ")
	b.WriteString(strings.Join(cols, ", "))
	return nil
}
