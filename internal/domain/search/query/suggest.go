package query

// Fuzziness lets a completion prefix match with typos.
type Fuzziness struct {
	// Fuzziness is an edit distance such as "1", "2" or "AUTO". Empty keeps the engine default.
	Fuzziness      string
	MinLength      *int
	PrefixLength   *int
	Transpositions *bool
	UnicodeAware   *bool
}

// CompletionSuggestion asks a completion property for entries matching a
// prefix or a regular expression.
type CompletionSuggestion struct {
	Name string
	// Property is resolved to its field name through the entity.
	Property       string
	Prefix         string
	Regex          string
	Size           *int
	SkipDuplicates bool
	Fuzzy          *Fuzziness
	// Contexts filters on category contexts, by context name.
	Contexts map[string][]string
}

// SuggestQuery is a suggest-only search. Suggestions are keyed by name.
type SuggestQuery struct {
	Completions []CompletionSuggestion
}

// NewSuggest starts a suggest query.
func NewSuggest(completions ...CompletionSuggestion) SuggestQuery {
	return SuggestQuery{Completions: completions}
}

// Completion adds a completion suggestion.
func (q SuggestQuery) Completion(c CompletionSuggestion) SuggestQuery {
	q.Completions = append(q.Completions[:len(q.Completions):len(q.Completions)], c)
	return q
}
