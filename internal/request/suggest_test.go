package request

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/esodm/internal/convert"
	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/domain/entity"
	"github.com/kailas-cloud/esodm/internal/domain/search/query"
)

type song struct {
	ID      string            `es:",id"`
	Title   string            `es:"title,type=text"`
	Suggest entity.Completion `es:"title_suggest"`
}

func TestSuggest_Body(t *testing.T) {
	ctx := entity.NewContext()
	e, err := entity.Describe[song](ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := NewFactory(convert.New(ctx))

	one := 1
	q := query.NewSuggest(query.CompletionSuggestion{
		Name:           "titles",
		Property:       "Suggest",
		Prefix:         "nir",
		Size:           &one,
		SkipDuplicates: true,
	}).Completion(query.CompletionSuggestion{
		Name:     "fuzzy",
		Property: "Suggest",
		Prefix:   "nrv",
		Fuzzy:    &query.Fuzziness{Fuzziness: "AUTO", PrefixLength: &one},
		Contexts: map[string][]string{"genre": {"rock"}},
	})

	r, err := f.Suggest(q, e, Index("songs"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"size":0,"suggest":{` +
		`"fuzzy":{"completion":{"contexts":{"genre":[{"context":"rock"}]},"field":"title_suggest","fuzzy":{"fuzziness":"AUTO","prefix_length":1}},"prefix":"nrv"},` +
		`"titles":{"completion":{"field":"title_suggest","size":1,"skip_duplicates":true},"prefix":"nir"}}}`
	if got := bodyJSON(t, r.Body); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
	if len(r.Indices) != 1 || r.Indices[0] != "songs" {
		t.Errorf("Indices = %v", r.Indices)
	}
}

func TestSuggest_Regex(t *testing.T) {
	f, _ := newFactory(t)
	r, err := f.Suggest(query.NewSuggest(query.CompletionSuggestion{Name: "s", Property: "tags", Regex: "n[ie]"}), nil, Index("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"size":0,"suggest":{"s":{"completion":{"field":"tags"},"regex":"n[ie]"}}}`
	if got := bodyJSON(t, r.Body); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestSuggest_Errors(t *testing.T) {
	f, e := newFactory(t)
	valid := query.CompletionSuggestion{Name: "s", Property: "Title", Prefix: "g"}

	tests := []struct {
		name string
		q    query.SuggestQuery
		idx  Coordinates
	}{
		{"no suggestions", query.NewSuggest(), Index("a")},
		{"missing name", query.NewSuggest(query.CompletionSuggestion{Property: "Title", Prefix: "g"}), Index("a")},
		{"missing property", query.NewSuggest(query.CompletionSuggestion{Name: "s", Prefix: "g"}), Index("a")},
		{"prefix and regex", query.NewSuggest(query.CompletionSuggestion{Name: "s", Property: "Title", Prefix: "g", Regex: "g.*"}), Index("a")},
		{"neither prefix nor regex", query.NewSuggest(query.CompletionSuggestion{Name: "s", Property: "Title"}), Index("a")},
		{"duplicate name", query.NewSuggest(valid, valid), Index("a")},
		{"no index", query.NewSuggest(valid), Index()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Suggest(tt.q, e, tt.idx)
			if !errors.Is(err, domain.ErrIllegalArgument) {
				t.Errorf("error = %v, want ErrIllegalArgument", err)
			}
		})
	}
}

func TestSuggest_CompletionDoesNotShareBacking(t *testing.T) {
	base := query.NewSuggest(query.CompletionSuggestion{Name: "a"})
	x := base.Completion(query.CompletionSuggestion{Name: "x"})
	y := base.Completion(query.CompletionSuggestion{Name: "y"})
	if x.Completions[1].Name != "x" || y.Completions[1].Name != "y" {
		t.Errorf("completions = %v / %v", x.Completions, y.Completions)
	}
}

func TestMoreLikeThis_Body(t *testing.T) {
	f, e := newFactory(t)
	freq, boost := 1, 0.5
	r, err := f.MoreLikeThis(query.MoreLikeThisQuery{
		ID:          "a1",
		Fields:      []string{"Title"},
		MinTermFreq: &freq,
		StopWords:   []string{"the"},
		BoostTerms:  &boost,
		Pageable:    query.MustPageOf(1, 5),
	}, e, Index("articles"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"query":{"more_like_this":{"boost_terms":0.5,"fields":["title_text"],` +
		`"like":[{"_id":"a1","_index":"articles"}],"min_term_freq":1,"stop_words":["the"]}},` +
		`"from":5,"size":5,"version":true}`
	if got := bodyJSON(t, r.Body); got != want {
		t.Errorf("body = %s\nwant   %s", got, want)
	}
}

func TestMoreLikeThis_Errors(t *testing.T) {
	f, e := newFactory(t)
	if _, err := f.MoreLikeThis(query.MoreLikeThisQuery{}, e, Index("articles")); !errors.Is(err, domain.ErrIllegalArgument) {
		t.Errorf("missing id error = %v, want ErrIllegalArgument", err)
	}
	if _, err := f.MoreLikeThis(query.MoreLikeThisQuery{ID: "a1"}, e, Index()); !errors.Is(err, domain.ErrIllegalArgument) {
		t.Errorf("missing index error = %v, want ErrIllegalArgument", err)
	}
}
