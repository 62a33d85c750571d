package criteria

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/esodm/internal/dsl"
)

// Resolver maps a property path to its wire field name and, when the path
// crosses a nested container, the wire path of that container.
type Resolver func(property string) (field, nestedPath string)

// Identity resolves every property to itself without nesting.
func Identity(property string) (string, string) { return property, "" }

// BuildQuery translates the scoring predicates of c into a bool query.
// It returns nil when c holds no scoring predicate.
func BuildQuery(c *Criteria, resolve Resolver) (dsl.Query, error) {
	return build(c, resolve, queryLink)
}

// BuildFilter translates the filter predicates of c into a bool query.
// It returns nil when c holds no filter predicate.
func BuildFilter(c *Criteria, resolve Resolver) (dsl.Query, error) {
	return build(c, resolve, filterLink)
}

type linkFunc func(p *part, resolve Resolver) (dsl.Query, error)

func build(c *Criteria, resolve Resolver, link linkFunc) (dsl.Query, error) {
	if c == nil {
		return nil, nil
	}
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("criteria: %w", err)
	}
	if resolve == nil {
		resolve = Identity
	}

	var groups [][]*part
	var cur []*part
	for i, p := range c.parts {
		if i > 0 && p.or {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, p)
	}
	groups = append(groups, cur)

	if len(groups) == 1 {
		return conjunction(groups[0], resolve, link)
	}
	b := dsl.Bool()
	for _, g := range groups {
		q, err := conjunction(g, resolve, link)
		if err != nil {
			return nil, err
		}
		if q != nil {
			b.Should(q)
		}
	}
	if !b.HasClauses() {
		return nil, nil
	}
	return b.Query(), nil
}

func conjunction(parts []*part, resolve Resolver, link linkFunc) (dsl.Query, error) {
	b := dsl.Bool()
	for _, p := range parts {
		var q dsl.Query
		var err error
		if p.group != nil {
			q, err = build(p.group, resolve, link)
		} else {
			q, err = link(p, resolve)
		}
		if err != nil {
			return nil, err
		}
		if q == nil {
			continue
		}
		if p.negating {
			b.MustNot(q)
		} else {
			b.Must(q)
		}
	}
	if !b.HasClauses() {
		return nil, nil
	}
	return b.Query(), nil
}

func queryLink(p *part, resolve Resolver) (dsl.Query, error) {
	return leaves(p, p.query, resolve, queryFor)
}

func filterLink(p *part, resolve Resolver) (dsl.Query, error) {
	return leaves(p, p.filter, resolve, filterFor)
}

func leaves(
	p *part, entries []Entry, resolve Resolver,
	translate func(Entry, string) (dsl.Query, error),
) (dsl.Query, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	field, nestedPath := resolve(p.property)

	qs := make([]dsl.Query, 0, len(entries))
	for _, e := range entries {
		q, err := translate(e, field)
		if err != nil {
			return nil, fmt.Errorf("criteria on %s: %w", p.property, err)
		}
		qs = append(qs, q)
	}

	q := qs[0]
	if len(qs) > 1 {
		q = dsl.Bool().Must(qs...).Query()
	}
	if p.boost > 0 {
		q = dsl.Boost(q, p.boost)
	}
	if nestedPath != "" {
		q = dsl.Nested(nestedPath, q, "avg")
	}
	return q, nil
}

//nolint:gocyclo,cyclop // one case per operator
func queryFor(e Entry, field string) (dsl.Query, error) {
	switch e.op {
	case OpEquals:
		return dsl.QueryString(Escape(fmt.Sprint(e.value)), dsl.QueryStringOptions{
			Fields: []string{field}, DefaultOperator: "and",
		}), nil
	case OpContains:
		return wildcard(field, "*"+Escape(fmt.Sprint(e.value))+"*"), nil
	case OpStartsWith:
		return wildcard(field, Escape(fmt.Sprint(e.value))+"*"), nil
	case OpEndsWith:
		return wildcard(field, "*"+Escape(fmt.Sprint(e.value))), nil
	case OpExpression:
		return dsl.QueryString(fmt.Sprint(e.value), dsl.QueryStringOptions{Fields: []string{field}}), nil
	case OpFuzzy:
		return dsl.Fuzzy(field, e.value), nil
	case OpMatches:
		return dsl.Match(field, e.value, "or"), nil
	case OpMatchesAll:
		return dsl.Match(field, e.value, "and"), nil
	case OpBetween:
		b, ok := e.value.(Between)
		if !ok {
			return nil, fmt.Errorf("between operand is %T", e.value)
		}
		return dsl.Range(field, dsl.RangeBounds{GTE: b.Lower, LTE: b.Upper}), nil
	case OpLess:
		return dsl.Range(field, dsl.RangeBounds{LT: e.value}), nil
	case OpLessEqual:
		return dsl.Range(field, dsl.RangeBounds{LTE: e.value}), nil
	case OpGreater:
		return dsl.Range(field, dsl.RangeBounds{GT: e.value}), nil
	case OpGreaterEqual:
		return dsl.Range(field, dsl.RangeBounds{GTE: e.value}), nil
	case OpIn:
		values, _ := e.value.([]any)
		return dsl.Terms(field, values...), nil
	case OpNotIn:
		values, _ := e.value.([]any)
		return dsl.Bool().MustNot(dsl.Terms(field, values...)).Query(), nil
	case OpExists:
		return dsl.Exists(field), nil
	default:
		return nil, fmt.Errorf("operator %s is not a query operator", e.op)
	}
}

func filterFor(e Entry, field string) (dsl.Query, error) {
	switch e.op {
	case OpWithin:
		w, ok := e.value.(Within)
		if !ok {
			return nil, fmt.Errorf("within operand is %T", e.value)
		}
		return dsl.GeoDistance(field, w.Center, w.Distance), nil
	case OpBoundingBox:
		b, ok := e.value.(BoundingBox)
		if !ok {
			return nil, fmt.Errorf("bbox operand is %T", e.value)
		}
		return dsl.GeoBoundingBox(field, b.TopLeft, b.BottomRight), nil
	default:
		return nil, fmt.Errorf("operator %s is not a filter operator", e.op)
	}
}

func wildcard(field, query string) dsl.Query {
	return dsl.QueryString(query, dsl.QueryStringOptions{
		Fields: []string{field}, AnalyzeWildcard: true,
	})
}

const queryStringSpecial = `\+-!():^[]"{}~*?|&/`

// Escape backslash-escapes query-string syntax characters.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(queryStringSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
