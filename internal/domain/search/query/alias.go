package query

// AliasActionType tags an AliasAction.
type AliasActionType string

// Alias action types.
const (
	AliasAdd         AliasActionType = "add"
	AliasRemove      AliasActionType = "remove"
	AliasRemoveIndex AliasActionType = "remove_index"
)

// AliasParameters are the parameters of an alias action.
// Filter is used for Add and is translated like a search query. FilterType
// is an entity value or its reflect.Type; when set, property names in Filter
// resolve to the field names of that entity.
type AliasParameters struct {
	Indices       []string
	Aliases       []string
	Routing       string
	IndexRouting  string
	SearchRouting string
	IsHidden      *bool
	IsWriteIndex  *bool
	Filter        Query
	FilterType    any
}

// AliasAction is one step of an atomic alias update.
type AliasAction struct {
	Type       AliasActionType
	Parameters AliasParameters
}

// AddAlias adds aliases to indices.
func AddAlias(p AliasParameters) AliasAction { return AliasAction{Type: AliasAdd, Parameters: p} }

// RemoveAlias removes aliases from indices.
func RemoveAlias(p AliasParameters) AliasAction { return AliasAction{Type: AliasRemove, Parameters: p} }

// RemoveIndex deletes indices as part of the alias update.
func RemoveIndex(p AliasParameters) AliasAction {
	return AliasAction{Type: AliasRemoveIndex, Parameters: p}
}

// Template describes a legacy index template.
type Template struct {
	Name     string
	Patterns []string
	Settings map[string]any
	Mapping  any
	Aliases  []AliasParameters
	Order    *int
	Version  *int
	Create   bool
}
