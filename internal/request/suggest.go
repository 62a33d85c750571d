package request

import (
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
	"github.com/kailas-cloud/esodm/internal/dsl"
)

// Suggest translates q into a search carrying only the suggest block.
// No hits are requested.
func (f *Factory) Suggest(q query.SuggestQuery, e *entity.Entity, idx Coordinates) (*SearchRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if len(q.Completions) == 0 {
		return nil, domain.IllegalArgument("suggest needs at least one suggestion")
	}
	s := &types.Suggester{Suggesters: make(map[string]types.FieldSuggester, len(q.Completions))}
	for _, c := range q.Completions {
		if c.Name == "" || c.Property == "" {
			return nil, domain.IllegalArgument("completion suggestion needs a name and a property")
		}
		if _, dup := s.Suggesters[c.Name]; dup {
			return nil, domain.IllegalArgument("duplicate suggestion name %q", c.Name)
		}
		if (c.Prefix == "") == (c.Regex == "") {
			return nil, domain.IllegalArgument("completion suggestion %q needs exactly one of prefix and regex", c.Name)
		}
		s.Suggesters[c.Name] = f.completion(c, e)
	}
	r := &SearchRequest{Indices: idx.Names()}
	r.Body.Size = intPtr(0)
	r.Body.Suggest = s
	return r, nil
}

func (f *Factory) completion(c query.CompletionSuggestion, e *entity.Entity) types.FieldSuggester {
	cs := &types.CompletionSuggester{
		Field: f.fieldName(e, c.Property),
		Size:  c.Size,
	}
	if c.SkipDuplicates {
		cs.SkipDuplicates = boolPtr(true)
	}
	if fz := c.Fuzzy; fz != nil {
		cs.Fuzzy = &types.SuggestFuzziness{
			MinLength:      fz.MinLength,
			PrefixLength:   fz.PrefixLength,
			Transpositions: fz.Transpositions,
			UnicodeAware:   fz.UnicodeAware,
		}
		if fz.Fuzziness != "" {
			cs.Fuzzy.Fuzziness = fz.Fuzziness
		}
	}
	if len(c.Contexts) > 0 {
		cs.Contexts = make(map[string][]types.CompletionContext, len(c.Contexts))
		for name, values := range c.Contexts {
			ctxs := make([]types.CompletionContext, 0, len(values))
			for _, v := range values {
				ctxs = append(ctxs, types.CompletionContext{Context: v})
			}
			cs.Contexts[name] = ctxs
		}
	}
	fs := types.FieldSuggester{Completion: cs}
	if c.Prefix != "" {
		fs.Prefix = &c.Prefix
	} else {
		fs.Regex = &c.Regex
	}
	return fs
}

// MoreLikeThis translates q into a search for documents similar to the
// document q.ID of idx. Paging follows q.Pageable.
func (f *Factory) MoreLikeThis(q query.MoreLikeThisQuery, e *entity.Entity, idx Coordinates) (*SearchRequest, error) {
	if err := idx.require(); err != nil {
		return nil, err
	}
	if q.ID == "" {
		return nil, domain.IllegalArgument("more like this needs a document id")
	}
	opts := dsl.MoreLikeThisOptions{
		Like:          []dsl.LikeDocument{{Index: idx.Name(), ID: q.ID}},
		MinTermFreq:   q.MinTermFreq,
		MaxQueryTerms: q.MaxQueryTerms,
		StopWords:     q.StopWords,
		MinDocFreq:    q.MinDocFreq,
		MaxDocFreq:    q.MaxDocFreq,
		MinWordLength: q.MinWordLength,
		MaxWordLength: q.MaxWordLength,
		BoostTerms:    q.BoostTerms,
	}
	for _, p := range q.Fields {
		opts.Fields = append(opts.Fields, f.fieldName(e, p))
	}
	native := query.NewNativeQueryBuilder().
		WithQuery(dsl.MoreLikeThis(opts)).
		WithPageable(q.Pageable).
		Build()
	return f.Search(native, e, idx)
}
