package criteria

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/esodm/internal/dsl"
)

// Operator is the predicate kind of an entry.
type Operator string

// Query operators.
const (
	OpEquals       Operator = "equals"
	OpContains     Operator = "contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpExpression   Operator = "expression"
	OpFuzzy        Operator = "fuzzy"
	OpBetween      Operator = "between"
	OpLess         Operator = "less"
	OpLessEqual    Operator = "less_equal"
	OpGreater      Operator = "greater"
	OpGreaterEqual Operator = "greater_equal"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpExists       Operator = "exists"
	OpMatches      Operator = "matches"
	OpMatchesAll   Operator = "matches_all"
)

// Filter operators. Entries with these operators land in the filter tree.
const (
	OpWithin      Operator = "within"
	OpBoundingBox Operator = "bbox"
)

// Entry is one predicate on a field.
type Entry struct {
	op    Operator
	value any
}

// Op returns the predicate kind.
func (e Entry) Op() Operator { return e.op }

// Value returns the predicate operand.
func (e Entry) Value() any { return e.value }

// Between is the operand of OpBetween. A nil bound is open.
type Between struct {
	Lower any
	Upper any
}

// Within is the operand of OpWithin.
type Within struct {
	Center   dsl.GeoPoint
	Distance string
}

// BoundingBox is the operand of OpBoundingBox.
type BoundingBox struct {
	TopLeft     dsl.GeoPoint
	BottomRight dsl.GeoPoint
}

// part is one link of a criteria chain: predicates on a single property,
// or a parenthesized sub-chain.
type part struct {
	property string
	or       bool
	negating bool
	boost    float64
	query    []Entry
	filter   []Entry
	group    *Criteria
}

// Criteria is a chain of field predicates combined with AND and OR.
// AND binds tighter than OR: a AND b OR c reads as (a AND b) OR c.
type Criteria struct {
	parts []*part
	err   error
}

// Where starts a chain on a property name. Dotted paths address sub-properties.
func Where(property string) *Criteria {
	return &Criteria{parts: []*part{{property: property}}}
}

// And continues the chain with a new property joined by AND.
func (c *Criteria) And(property string) *Criteria {
	c.parts = append(c.parts, &part{property: property})
	return c
}

// Or continues the chain with a new property joined by OR.
func (c *Criteria) Or(property string) *Criteria {
	c.parts = append(c.parts, &part{property: property, or: true})
	return c
}

// AndGroup appends a parenthesized sub-chain joined by AND.
func (c *Criteria) AndGroup(sub *Criteria) *Criteria {
	c.parts = append(c.parts, &part{group: sub})
	return c
}

// OrGroup appends a parenthesized sub-chain joined by OR.
func (c *Criteria) OrGroup(sub *Criteria) *Criteria {
	c.parts = append(c.parts, &part{group: sub, or: true})
	return c
}

func (c *Criteria) current() *part { return c.parts[len(c.parts)-1] }

func (c *Criteria) add(op Operator, value any) *Criteria {
	p := c.current()
	if p.group != nil {
		c.fail(fmt.Errorf("predicate %s applied to a group", op))
		return c
	}
	switch op {
	case OpWithin, OpBoundingBox:
		p.filter = append(p.filter, Entry{op: op, value: value})
	default:
		p.query = append(p.query, Entry{op: op, value: value})
	}
	return c
}

func (c *Criteria) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Is matches the exact phrase.
func (c *Criteria) Is(v any) *Criteria { return c.add(OpEquals, v) }

// Contains matches values containing s.
func (c *Criteria) Contains(s string) *Criteria { return c.add(OpContains, s) }

// StartsWith matches values starting with s.
func (c *Criteria) StartsWith(s string) *Criteria { return c.add(OpStartsWith, s) }

// EndsWith matches values ending with s.
func (c *Criteria) EndsWith(s string) *Criteria { return c.add(OpEndsWith, s) }

// Expression matches a raw query-string expression.
func (c *Criteria) Expression(s string) *Criteria { return c.add(OpExpression, s) }

// Fuzzy matches terms within the engine's default edit distance.
func (c *Criteria) Fuzzy(s string) *Criteria { return c.add(OpFuzzy, s) }

// Between matches values within inclusive bounds. One bound may be nil.
func (c *Criteria) Between(lower, upper any) *Criteria {
	if lower == nil && upper == nil {
		c.fail(errors.New("between requires at least one bound"))
		return c
	}
	return c.add(OpBetween, Between{Lower: lower, Upper: upper})
}

// LessThan matches values below v.
func (c *Criteria) LessThan(v any) *Criteria { return c.add(OpLess, v) }

// LessThanEqual matches values up to v.
func (c *Criteria) LessThanEqual(v any) *Criteria { return c.add(OpLessEqual, v) }

// GreaterThan matches values above v.
func (c *Criteria) GreaterThan(v any) *Criteria { return c.add(OpGreater, v) }

// GreaterThanEqual matches values from v.
func (c *Criteria) GreaterThanEqual(v any) *Criteria { return c.add(OpGreaterEqual, v) }

// In matches any of the values.
func (c *Criteria) In(values ...any) *Criteria {
	if len(values) == 0 {
		c.fail(errors.New("in requires at least one value"))
		return c
	}
	return c.add(OpIn, values)
}

// NotIn matches none of the values.
func (c *Criteria) NotIn(values ...any) *Criteria {
	if len(values) == 0 {
		c.fail(errors.New("not in requires at least one value"))
		return c
	}
	return c.add(OpNotIn, values)
}

// Exists matches documents that have a value.
func (c *Criteria) Exists() *Criteria { return c.add(OpExists, nil) }

// Matches runs a full-text match where any term may match.
func (c *Criteria) Matches(v any) *Criteria { return c.add(OpMatches, v) }

// MatchesAll runs a full-text match where every term must match.
func (c *Criteria) MatchesAll(v any) *Criteria { return c.add(OpMatchesAll, v) }

// Within filters geo points within distance (e.g. "10km") of center.
func (c *Criteria) Within(center dsl.GeoPoint, distance string) *Criteria {
	if distance == "" {
		c.fail(errors.New("within requires a distance"))
		return c
	}
	return c.add(OpWithin, Within{Center: center, Distance: distance})
}

// BoundedBy filters geo points inside a box.
func (c *Criteria) BoundedBy(topLeft, bottomRight dsl.GeoPoint) *Criteria {
	return c.add(OpBoundingBox, BoundingBox{TopLeft: topLeft, BottomRight: bottomRight})
}

// Not negates the current link.
func (c *Criteria) Not() *Criteria {
	c.current().negating = true
	return c
}

// Boost sets the boost of the current link.
func (c *Criteria) Boost(b float64) *Criteria {
	if b < 0 {
		c.fail(fmt.Errorf("boost must not be negative, got %g", b))
		return c
	}
	c.current().boost = b
	return c
}

// Err returns the first construction error.
func (c *Criteria) Err() error {
	if c.err != nil {
		return c.err
	}
	for _, p := range c.parts {
		if p.group != nil {
			if err := p.group.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsEmpty reports whether the chain holds no predicate.
func (c *Criteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, p := range c.parts {
		if len(p.query) > 0 || len(p.filter) > 0 {
			return false
		}
		if p.group != nil && !p.group.IsEmpty() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the chain. Operand values are shared.
func (c *Criteria) Clone() *Criteria {
	if c == nil {
		return nil
	}
	out := &Criteria{parts: make([]*part, 0, len(c.parts)), err: c.err}
	for _, p := range c.parts {
		cp := *p
		cp.query = append([]Entry(nil), p.query...)
		cp.filter = append([]Entry(nil), p.filter...)
		cp.group = p.group.Clone()
		out.parts = append(out.parts, &cp)
	}
	return out
}

// Properties returns the property names referenced by the chain, in order.
func (c *Criteria) Properties() []string {
	var out []string
	for _, p := range c.parts {
		if p.group != nil {
			out = append(out, p.group.Properties()...)
			continue
		}
		out = append(out, p.property)
	}
	return out
}
