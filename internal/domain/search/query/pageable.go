package query

import (
	"fmt"

	"github.com/kailas-cloud/esodm/internal/dsl"
)

// Paging limits.
const (
	DefaultPageSize = 10
	// MaxResultWindow is the engine's default index.max_result_window. Unpaged
	// queries fetch at most this many hits.
	MaxResultWindow = 10000
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// NullHandling places documents without a value.
type NullHandling int

// Null handling modes.
const (
	NullsNative NullHandling = iota
	NullsFirst
	NullsLast
)

// GeoDistance turns an order into a distance sort from the given points.
type GeoDistance struct {
	Points         []dsl.GeoPoint
	Unit           string
	DistanceType   string
	IgnoreUnmapped *bool
}

// ScoreProperty sorts by relevance.
const ScoreProperty = "_score"

// Order sorts on one property.
type Order struct {
	Property     string
	Direction    Direction
	NullHandling NullHandling
	Mode         string
	UnmappedType string
	Geo          *GeoDistance
}

// AscOn sorts ascending on property.
func AscOn(property string) Order { return Order{Property: property, Direction: Asc} }

// DescOn sorts descending on property.
func DescOn(property string) Order { return Order{Property: property, Direction: Desc} }

// ByDistance sorts ascending by distance from points.
func ByDistance(property string, points ...dsl.GeoPoint) Order {
	return Order{Property: property, Direction: Asc, Geo: &GeoDistance{Points: points}}
}

// WithNullsFirst places missing values first.
func (o Order) WithNullsFirst() Order {
	o.NullHandling = NullsFirst
	return o
}

// WithNullsLast places missing values last.
func (o Order) WithNullsLast() Order {
	o.NullHandling = NullsLast
	return o
}

// WithUnit sets the unit of a distance sort.
func (o Order) WithUnit(unit string) Order {
	if o.Geo != nil {
		g := *o.Geo
		g.Unit = unit
		o.Geo = &g
	}
	return o
}

// Sort is an ordered list of orders.
type Sort []Order

// By builds a Sort.
func By(orders ...Order) Sort { return Sort(orders) }

// And appends other to s.
func (s Sort) And(other Sort) Sort {
	out := make(Sort, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

// Pageable is a page request. The zero value is the first page of DefaultPageSize.
type Pageable struct {
	page    int
	size    int
	sort    Sort
	unpaged bool
}

// PageOf validates and creates a page request.
func PageOf(page, size int, orders ...Order) (Pageable, error) {
	if page < 0 {
		return Pageable{}, fmt.Errorf("page index must not be negative, got %d", page)
	}
	if size < 1 {
		return Pageable{}, fmt.Errorf("page size must be at least 1, got %d", size)
	}
	return Pageable{page: page, size: size, sort: Sort(orders)}, nil
}

// MustPageOf is PageOf that panics on invalid input.
func MustPageOf(page, size int, orders ...Order) Pageable {
	p, err := PageOf(page, size, orders...)
	if err != nil {
		panic(err)
	}
	return p
}

// Unpaged requests every hit up to MaxResultWindow.
func Unpaged(orders ...Order) Pageable {
	return Pageable{unpaged: true, sort: Sort(orders)}
}

// IsPaged reports whether the request is paged.
func (p Pageable) IsPaged() bool { return !p.unpaged }

// PageNumber returns the zero-based page index.
func (p Pageable) PageNumber() int { return p.page }

// PageSize returns the page size.
func (p Pageable) PageSize() int {
	if p.size == 0 {
		return DefaultPageSize
	}
	return p.size
}

// Offset returns the index of the first hit of the page.
func (p Pageable) Offset() int { return p.page * p.PageSize() }

// Sort returns the sort carried by the page request.
func (p Pageable) Sort() Sort { return p.sort }
