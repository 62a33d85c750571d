package dsl

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// LikeDocument points a more_like_this clause at a stored document.
type LikeDocument struct {
	Index string
	ID    string
}

// MoreLikeThisOptions tune a more_like_this clause. Zero values are left to
// the engine defaults.
type MoreLikeThisOptions struct {
	Fields        []string
	Like          []LikeDocument
	LikeText      []string
	MinTermFreq   *int
	MaxQueryTerms *int
	StopWords     []string
	MinDocFreq    *int
	MaxDocFreq    *int
	MinWordLength *int
	MaxWordLength *int
	BoostTerms    *float64
}

// MoreLikeThis finds documents similar to the given documents or texts.
func MoreLikeThis(opts MoreLikeThisOptions) Query {
	m := &types.MoreLikeThisQuery{
		Fields:        opts.Fields,
		Like:          make([]types.Like, 0, len(opts.Like)+len(opts.LikeText)),
		MinTermFreq:   opts.MinTermFreq,
		MaxQueryTerms: opts.MaxQueryTerms,
		MinDocFreq:    opts.MinDocFreq,
		MaxDocFreq:    opts.MaxDocFreq,
		MinWordLength: opts.MinWordLength,
		MaxWordLength: opts.MaxWordLength,
	}
	for _, d := range opts.Like {
		doc := types.LikeDocument{Id_: &d.ID}
		if d.Index != "" {
			doc.Index_ = &d.Index
		}
		m.Like = append(m.Like, doc)
	}
	for _, text := range opts.LikeText {
		m.Like = append(m.Like, text)
	}
	if len(opts.StopWords) > 0 {
		m.StopWords = opts.StopWords
	}
	if opts.BoostTerms != nil {
		bt := types.Float64(*opts.BoostTerms)
		m.BoostTerms = &bt
	}
	return &types.Query{MoreLikeThis: m}
}
