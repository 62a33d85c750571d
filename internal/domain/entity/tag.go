package entity

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	tagKey      = "es"
	innerTagKey = "esfields"
	listSep     = "|"
)

// fieldTag is the parsed form of an `es` struct tag.
type fieldTag struct {
	name         string
	id           bool
	version      bool
	seqNo        bool
	params       FieldParams
	ignoreFields []string
}

// parseFieldTag parses `es:"name,key=value,flag"`.
func parseFieldTag(tag string) (fieldTag, error) {
	parts := strings.Split(tag, ",")
	ft := fieldTag{name: strings.TrimSpace(parts[0])}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "id":
			ft.id = true
		case "version":
			ft.version = true
		case "seqno":
			ft.seqNo = true
		case "ignore_fields":
			ft.ignoreFields = splitList(value)
		default:
			if err := applyParam(&ft.params, key, value, hasValue); err != nil {
				return fieldTag{}, err
			}
		}
	}
	return ft, nil
}

// parseInnerFields parses `esfields:"suffix,key=value;suffix2,key=value"`.
func parseInnerFields(tag string) ([]InnerField, error) {
	var out []InnerField
	for _, decl := range strings.Split(tag, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		parts := strings.Split(decl, ",")
		inner := InnerField{Suffix: strings.TrimSpace(parts[0])}
		if inner.Suffix == "" {
			return nil, fmt.Errorf("inner field without suffix in %q", decl)
		}
		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key, value, hasValue := strings.Cut(part, "=")
			if err := applyParam(&inner.Params, key, value, hasValue); err != nil {
				return nil, fmt.Errorf("inner field %s: %w", inner.Suffix, err)
			}
		}
		out = append(out, inner)
	}
	return out, nil
}

// applyParam sets one mapping parameter. Bare boolean flags mean true.
//
//nolint:gocyclo,cyclop // one case per engine parameter
func applyParam(p *FieldParams, key, value string, hasValue bool) error {
	var err error
	switch key {
	case "type":
		t, ok := ParseFieldType(value)
		if !ok {
			return fmt.Errorf("unknown field type %q", value)
		}
		p.Type = t
	case "store":
		p.Store, err = parseFlag(key, value, hasValue)
	case "fielddata":
		p.Fielddata, err = parseFlag(key, value, hasValue)
	case "ignore_malformed":
		p.IgnoreMalformed, err = parseFlag(key, value, hasValue)
	case "index_phrases":
		p.IndexPhrases, err = parseFlag(key, value, hasValue)
	case "eager_global_ordinals":
		p.EagerGlobalOrdinals, err = parseFlag(key, value, hasValue)
	case "index":
		p.Index, err = parseFlagPtr(key, value, hasValue)
	case "doc_values":
		p.DocValues, err = parseFlagPtr(key, value, hasValue)
	case "norms":
		p.Norms, err = parseFlagPtr(key, value, hasValue)
	case "coerce":
		p.Coerce, err = parseFlagPtr(key, value, hasValue)
	case "enabled":
		p.Enabled, err = parseFlagPtr(key, value, hasValue)
	case "positive_score_impact":
		p.PositiveScoreImpact, err = parseFlagPtr(key, value, hasValue)
	case "ignore_z_value":
		p.IgnoreZValue, err = parseFlagPtr(key, value, hasValue)
	case "preserve_separators":
		p.PreserveSeparators, err = parseFlagPtr(key, value, hasValue)
	case "preserve_position_increments":
		p.PreservePositionIncrements, err = parseFlagPtr(key, value, hasValue)
	case "analyzer":
		p.Analyzer = value
	case "search_analyzer":
		p.SearchAnalyzer = value
	case "normalizer":
		p.Normalizer = value
	case "index_options":
		p.IndexOptions = value
	case "similarity":
		p.Similarity = value
	case "term_vector":
		p.TermVector = value
	case "orientation":
		p.Orientation = value
	case "ignore_above":
		p.IgnoreAbove, err = parseIntPtr(key, value)
		if err == nil && *p.IgnoreAbove < 0 {
			err = fmt.Errorf("ignore_above must not be negative, got %d", *p.IgnoreAbove)
		}
	case "position_increment_gap":
		p.PositionIncrementGap, err = parseIntPtr(key, value)
	case "max_shingle_size":
		p.MaxShingleSize, err = parseIntPtr(key, value)
	case "max_input_length":
		p.MaxInputLength, err = parseIntPtr(key, value)
	case "dims":
		var dims *int
		dims, err = parseIntPtr(key, value)
		if err == nil {
			p.Dims = *dims
		}
	case "scaling_factor":
		var f float64
		f, err = strconv.ParseFloat(value, 64)
		if err != nil {
			err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
		} else {
			p.ScalingFactor = &f
		}
	case "copy_to":
		p.CopyTo = splitList(value)
	case "format":
		p.Formats = splitList(value)
		if p.Formats == nil {
			p.Formats = []string{}
		}
	case "pattern":
		p.Patterns = splitList(value)
	case "null_value":
		p.NullValue = value
	case "null_value_type":
		switch t := NullValueType(value); t {
		case NullString, NullInteger, NullLong, NullDouble:
			p.NullValueType = t
		default:
			return fmt.Errorf("unknown null_value_type %q", value)
		}
	case "index_prefixes":
		p.IndexPrefixes, err = parseIndexPrefixes(value)
	case "dynamic":
		d, ok := parseDynamic(value)
		if !ok {
			return fmt.Errorf("unknown dynamic mode %q", value)
		}
		p.Dynamic = d
	case "contexts":
		p.Contexts, err = parseContexts(value)
	default:
		return fmt.Errorf("unknown tag key %q", key)
	}
	return err
}

func parseFlag(key, value string, hasValue bool) (bool, error) {
	if !hasValue {
		return true, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return b, nil
}

func parseFlagPtr(key, value string, hasValue bool) (*bool, error) {
	b, err := parseFlag(key, value, hasValue)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func parseIntPtr(key, value string) (*int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return &n, nil
}

// parseIndexPrefixes reads "min:max"; either side may be empty.
func parseIndexPrefixes(value string) (*IndexPrefixes, error) {
	ip := &IndexPrefixes{}
	if value == "" {
		return ip, nil
	}
	minS, maxS, _ := strings.Cut(value, ":")
	if minS != "" {
		n, err := strconv.Atoi(minS)
		if err != nil {
			return nil, fmt.Errorf("invalid index_prefixes min_chars %q: %w", minS, err)
		}
		ip.MinChars = n
	}
	if maxS != "" {
		n, err := strconv.Atoi(maxS)
		if err != nil {
			return nil, fmt.Errorf("invalid index_prefixes max_chars %q: %w", maxS, err)
		}
		ip.MaxChars = n
	}
	return ip, nil
}

// parseContexts reads "name:type:path[:precision]|...".
func parseContexts(value string) ([]CompletionContext, error) {
	var out []CompletionContext
	for _, decl := range splitList(value) {
		parts := strings.Split(decl, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid completion context %q", decl)
		}
		c := CompletionContext{Name: parts[0], Type: parts[1]}
		if len(parts) > 2 {
			c.Path = parts[2]
		}
		if len(parts) > 3 {
			c.Precision = parts[3]
		}
		out = append(out, c)
	}
	return out, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, listSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// defaultFieldName lower-cases the leading capital run of a Go field name:
// Name -> name, ID -> id, URLPath -> urlPath.
func defaultFieldName(goName string) string {
	runes := []rune(goName)
	upper := 0
	for upper < len(runes) && runes[upper] >= 'A' && runes[upper] <= 'Z' {
		upper++
	}
	switch {
	case upper == 0:
		return goName
	case upper == len(runes):
		return strings.ToLower(goName)
	case upper > 1:
		upper--
	}
	return strings.ToLower(string(runes[:upper])) + string(runes[upper:])
}
