package fulfillment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Filter Predicates
// ---------------------------------------------------------------------------

// Operator is a comparison operator of the remote query language
type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpGe Operator = "ge"
	OpGt Operator = "gt"
	OpLe Operator = "le"
	OpLt Operator = "lt"
)

// IsValid returns true if the operator is supported
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNe, OpGe, OpGt, OpLe, OpLt:
		return true
	}
	return false
}

// remoteDateTimeLayout is the layout of typed datetime literals
const remoteDateTimeLayout = "2006-01-02T15:04:05"

// Literal is a typed filter operand. Values are encoded by the literal itself,
// never interpolated by callers.
type Literal interface {
	encode() string
}

type stringLiteral string

func (l stringLiteral) encode() string {
	return "'" + strings.ReplaceAll(string(l), "'", "''") + "'"
}

type intLiteral int64

func (l intLiteral) encode() string {
	return strconv.FormatInt(int64(l), 10)
}

type dateTimeLiteral time.Time

func (l dateTimeLiteral) encode() string {
	return "datetime'" + time.Time(l).UTC().Format(remoteDateTimeLayout) + "'"
}

type nullLiteral struct{}

func (nullLiteral) encode() string { return "null" }

// String returns a quoted string literal; embedded quotes are doubled
func String(v string) Literal { return stringLiteral(v) }

// Int returns a numeric literal
func Int(v int64) Literal { return intLiteral(v) }

// DateTime returns a typed datetime literal, rendered in UTC at second precision
func DateTime(v time.Time) Literal { return dateTimeLiteral(v) }

// Null returns the null literal
func Null() Literal { return nullLiteral{} }

// Clause is a single field/operator/literal comparison
type Clause struct {
	Field    string
	Operator Operator
	Value    Literal
}

func (c Clause) String() string {
	return c.Field + " " + string(c.Operator) + " " + c.Value.encode()
}

// Filter is a conjunction of clauses. The zero value matches every record.
type Filter struct {
	clauses []Clause
}

// Where starts a filter with a single clause.
// It panics when field is not an identifier or the operator is unknown,
// both of which are programming errors.
func Where(field string, op Operator, value Literal) Filter {
	return Filter{}.And(field, op, value)
}

// And returns a copy of the filter with one more clause
func (f Filter) And(field string, op Operator, value Literal) Filter {
	if !isIdentifier(field) {
		panic(fmt.Sprintf("fulfillment: invalid filter field %q", field))
	}
	if !op.IsValid() {
		panic(fmt.Sprintf("fulfillment: invalid filter operator %q", op))
	}
	if value == nil {
		value = Null()
	}
	clauses := make([]Clause, len(f.clauses), len(f.clauses)+1)
	copy(clauses, f.clauses)
	return Filter{clauses: append(clauses, Clause{Field: field, Operator: op, Value: value})}
}

// Clauses returns the clauses of the filter
func (f Filter) Clauses() []Clause {
	return append([]Clause(nil), f.clauses...)
}

// IsEmpty returns true if the filter has no clauses
func (f Filter) IsEmpty() bool {
	return len(f.clauses) == 0
}

// String renders the $filter expression
func (f Filter) String() string {
	parts := make([]string, len(f.clauses))
	for i, c := range f.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		case r == '/' && i > 0:
		default:
			return false
		}
	}
	return true
}
