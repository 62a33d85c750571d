package dsl

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/distanceunit"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/fieldtype"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/geodistancetype"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortmode"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
)

// Sort is one entry of a sort array, e.g. {"price": {"order": "asc"}}.
type Sort = types.SortOptions

// Sort orders.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Missing values placement.
const (
	MissingFirst = "_first"
	MissingLast  = "_last"
)

// FieldSortOptions tune a field sort.
type FieldSortOptions struct {
	Missing      string
	Mode         string
	UnmappedType string
	NestedPath   string
}

func order(o string) *sortorder.SortOrder {
	if o == "" {
		return nil
	}
	return &sortorder.SortOrder{Name: o}
}

func mode(m string) *sortmode.SortMode {
	if m == "" {
		return nil
	}
	return &sortmode.SortMode{Name: m}
}

// FieldSort sorts on a field value.
func FieldSort(field, dir string, opts FieldSortOptions) Sort {
	fs := types.FieldSort{Order: order(dir), Mode: mode(opts.Mode)}
	if opts.Missing != "" {
		fs.Missing = opts.Missing
	}
	if opts.UnmappedType != "" {
		fs.UnmappedType = &fieldtype.FieldType{Name: opts.UnmappedType}
	}
	if opts.NestedPath != "" {
		fs.Nested = &types.NestedSortValue{Path: opts.NestedPath}
	}
	return Sort{SortOptions: map[string]types.FieldSort{field: fs}}
}

// ScoreSort sorts on relevance, descending unless dir says otherwise.
func ScoreSort(dir string) Sort {
	if dir == "" {
		dir = Desc
	}
	return Sort{Score_: &types.ScoreSort{Order: order(dir)}}
}

// GeoDistanceSortOptions tune a geo distance sort.
type GeoDistanceSortOptions struct {
	Unit           string
	DistanceType   string
	Mode           string
	IgnoreUnmapped *bool
}

// GeoDistanceSort sorts by distance from the given points.
func GeoDistanceSort(field string, points []GeoPoint, dir string, opts GeoDistanceSortOptions) Sort {
	locs := make([]types.GeoLocation, 0, len(points))
	for _, p := range points {
		locs = append(locs, p.Location())
	}
	gs := &types.GeoDistanceSort{
		GeoDistanceSort: map[string][]types.GeoLocation{field: locs},
		Order:           order(dir),
		Mode:            mode(opts.Mode),
		IgnoreUnmapped:  opts.IgnoreUnmapped,
	}
	if opts.Unit != "" {
		gs.Unit = &distanceunit.DistanceUnit{Name: opts.Unit}
	}
	if opts.DistanceType != "" {
		gs.DistanceType = &geodistancetype.GeoDistanceType{Name: opts.DistanceType}
	}
	return Sort{GeoDistance_: gs}
}
