package query

// MoreLikeThisQuery finds documents similar to the stored document ID of the
// searched index. Nil tuning values keep the engine defaults.
type MoreLikeThisQuery struct {
	ID string
	// Fields are property names; empty means the engine's default fields.
	Fields []string

	MinTermFreq   *int
	MaxQueryTerms *int
	StopWords     []string
	MinDocFreq    *int
	MaxDocFreq    *int
	MinWordLength *int
	MaxWordLength *int
	BoostTerms    *float64

	Pageable Pageable
}
