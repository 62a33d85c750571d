package result

import "slices"

// Suggestion is one named suggestion of a response.
type Suggestion struct {
	Name    string
	Entries []SuggestionEntry
}

// SuggestionEntry holds the options for one piece of suggest text.
type SuggestionEntry struct {
	Text    string
	Offset  int
	Length  int
	Options []SuggestionOption
}

// SuggestionOption is one completion. Source is set when the engine returned the document.
type SuggestionOption struct {
	Text     string
	Index    string
	ID       string
	Score    float64
	Source   map[string]any
	Contexts map[string][]string
}

type wireSuggestOption struct {
	Text     string              `json:"text"`
	Index    string              `json:"_index"`
	ID       string              `json:"_id"`
	Score    *float64            `json:"_score"`
	Plain    *float64            `json:"score"`
	Source   map[string]any      `json:"_source"`
	Contexts map[string][]string `json:"contexts"`
}

type wireSuggestEntry struct {
	Text    string              `json:"text"`
	Offset  int                 `json:"offset"`
	Length  int                 `json:"length"`
	Options []wireSuggestOption `json:"options"`
}

// suggestions orders the named suggestions by name.
func suggestions(raw map[string][]wireSuggestEntry) []Suggestion {
	if len(raw) == 0 {
		return nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Suggestion, 0, len(raw))
	for _, name := range names {
		s := Suggestion{Name: name, Entries: make([]SuggestionEntry, 0, len(raw[name]))}
		for _, e := range raw[name] {
			entry := SuggestionEntry{Text: e.Text, Offset: e.Offset, Length: e.Length}
			for _, o := range e.Options {
				entry.Options = append(entry.Options, o.toOption())
			}
			s.Entries = append(s.Entries, entry)
		}
		out = append(out, s)
	}
	return out
}

func (o wireSuggestOption) toOption() SuggestionOption {
	opt := SuggestionOption{
		Text:     o.Text,
		Index:    o.Index,
		ID:       o.ID,
		Source:   o.Source,
		Contexts: o.Contexts,
	}
	// completion options carry _score, term options score
	switch {
	case o.Score != nil:
		opt.Score = *o.Score
	case o.Plain != nil:
		opt.Score = *o.Plain
	}
	return opt
}

// Document returns the option as a raw hit for conversion.
func (o SuggestionOption) Document() *SearchDocument {
	return &SearchDocument{Index: o.Index, ID: o.ID, Score: o.Score, Source: o.Source}
}

// TypedSuggestion is a suggestion whose options carry converted documents.
type TypedSuggestion[T any] struct {
	Name    string
	Entries []TypedSuggestionEntry[T]
}

// TypedSuggestionEntry holds the typed options for one piece of suggest text.
type TypedSuggestionEntry[T any] struct {
	Text    string
	Offset  int
	Length  int
	Options []TypedSuggestionOption[T]
}

// TypedSuggestionOption is a completion with its document. Content is nil
// when the engine returned no source.
type TypedSuggestionOption[T any] struct {
	Text     string
	Index    string
	ID       string
	Score    float64
	Contexts map[string][]string
	Content  *T
}

// Suggest is the suggest part of a response.
type Suggest[T any] struct {
	Suggestions []TypedSuggestion[T]
}

// Suggestion returns the suggestion called name.
func (s *Suggest[T]) Suggestion(name string) (TypedSuggestion[T], bool) {
	for _, sg := range s.Suggestions {
		if sg.Name == name {
			return sg, true
		}
	}
	return TypedSuggestion[T]{}, false
}

// Texts returns the option texts of the suggestion called name, in order.
func (s *Suggest[T]) Texts(name string) []string {
	sg, ok := s.Suggestion(name)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range sg.Entries {
		for _, o := range e.Options {
			out = append(out, o.Text)
		}
	}
	return out
}

// MapSuggest converts every option source with read.
func MapSuggest[T any](raw []Suggestion, read func(*SearchDocument) (T, error)) (*Suggest[T], error) {
	out := &Suggest[T]{Suggestions: make([]TypedSuggestion[T], 0, len(raw))}
	for _, s := range raw {
		ts := TypedSuggestion[T]{Name: s.Name, Entries: make([]TypedSuggestionEntry[T], 0, len(s.Entries))}
		for _, e := range s.Entries {
			te := TypedSuggestionEntry[T]{Text: e.Text, Offset: e.Offset, Length: e.Length}
			for _, o := range e.Options {
				to := TypedSuggestionOption[T]{
					Text: o.Text, Index: o.Index, ID: o.ID, Score: o.Score, Contexts: o.Contexts,
				}
				if o.Source != nil {
					item, err := read(o.Document())
					if err != nil {
						return nil, err
					}
					to.Content = &item
				}
				te.Options = append(te.Options, to)
			}
			ts.Entries = append(ts.Entries, te)
		}
		out.Suggestions = append(out.Suggestions, ts)
	}
	return out, nil
}
