package esodm

import (
	"github.com/kailas-cloud/esodm/internal/domain/batch"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/criteria"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/domain/search/result"
	"github.com/kailas-cloud/esodm/internal/dsl"
	"github.com/kailas-cloud/esodm/internal/request"
)

// Entity metadata.
type (
	DocumentSpec     = entity.DocumentSpec
	MappingSpec      = entity.MappingSpec
	VersionType      = entity.VersionType
	Dynamic          = entity.Dynamic
	TypeHint         = entity.TypeHint
	GeoPoint         = entity.GeoPoint
	Completion       = entity.Completion
	SeqNoPrimaryTerm = entity.SeqNoPrimaryTerm
)

// Query model.
type (
	Query              = query.Query
	CriteriaQuery      = query.CriteriaQuery
	StringQuery        = query.StringQuery
	NativeQuery        = query.NativeQuery
	NativeQueryBuilder = query.NativeQueryBuilder
	Criteria           = criteria.Criteria
	Pageable           = query.Pageable
	Sort               = query.Sort
	Order              = query.Order
	UpdateQuery        = query.UpdateQuery
	IndexQuery         = query.IndexQuery
	GetOptions         = query.GetOptions
	SourceFilter       = query.SourceFilter
	Template           = query.Template
	AliasAction        = query.AliasAction
	AliasParameters    = query.AliasParameters
	RefreshPolicy      = query.RefreshPolicy
	DSL                = dsl.Query

	SuggestQuery         = query.SuggestQuery
	CompletionSuggestion = query.CompletionSuggestion
	Fuzziness            = query.Fuzziness
	MoreLikeThisQuery    = query.MoreLikeThisQuery
)

// Results.
type (
	Hit[T any]        = result.SearchHit[T]
	SearchHits[T any] = result.SearchHits[T]
	Suggest[T any]    = result.Suggest[T]
	BulkOperation     = request.BulkOperation
	BulkResult        = batch.Result
)

// Entity-level switches.
const (
	DynamicInherit = entity.DynamicInherit
	DynamicTrue    = entity.DynamicTrue
	DynamicFalse   = entity.DynamicFalse
	DynamicStrict  = entity.DynamicStrict
	DynamicRuntime = entity.DynamicRuntime

	VersionInternal    = entity.VersionInternal
	VersionExternal    = entity.VersionExternal
	VersionExternalGTE = entity.VersionExternalGTE

	TypeHintDefault = entity.TypeHintDefault
	TypeHintTrue    = entity.TypeHintTrue
	TypeHintFalse   = entity.TypeHintFalse
)

// Refresh policies for writes.
const (
	RefreshNone      = query.RefreshNone
	RefreshImmediate = query.RefreshImmediate
	RefreshWaitUntil = query.RefreshWaitUntil
)

var (
	// Where starts a criteria chain on a property.
	Where = criteria.Where
	// NewCriteriaQuery wraps a criteria chain; nil matches all.
	NewCriteriaQuery = query.NewCriteriaQuery
	// NewStringQuery wraps a raw JSON query.
	NewStringQuery        = query.NewStringQuery
	NewNativeQueryBuilder = query.NewNativeQueryBuilder
	NewUpdate             = query.NewUpdate
	NewUpdateByQuery      = query.NewUpdateByQuery
	PageOf                = query.PageOf
	MustPageOf            = query.MustPageOf
	Unpaged               = query.Unpaged
	By                    = query.By
	AscOn                 = query.AscOn
	DescOn                = query.DescOn
	AddAlias              = query.AddAlias
	RemoveAlias           = query.RemoveAlias
	RemoveIndex           = query.RemoveIndex
	NewSuggest            = query.NewSuggest
	// Failed filters the failed items of a bulk result.
	Failed = batch.Failed
)

// Native clause builders.
var (
	MatchAll       = dsl.MatchAll
	Term           = dsl.Term
	Terms          = dsl.Terms
	Match          = dsl.Match
	Exists         = dsl.Exists
	Range          = dsl.Range
	Bool           = dsl.Bool
	Nested         = dsl.Nested
	GeoDistance    = dsl.GeoDistance
	GeoBoundingBox = dsl.GeoBoundingBox
	FieldSort      = dsl.FieldSort
)

// Location is a latitude/longitude pair used by geo criteria and clauses.
type Location = dsl.GeoPoint

// Aggregation is the body of a named aggregation.
type Aggregation = dsl.Aggregation

// RangeBounds are the bounds of a Range clause.
type RangeBounds = dsl.RangeBounds

// FieldSortOptions tune a FieldSort.
type FieldSortOptions = dsl.FieldSortOptions
