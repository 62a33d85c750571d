package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/esodm/internal/domain/entity"
)

// Built-in date formats with a fixed layout.
var namedLayouts = map[string]string{
	"date":                            time.DateOnly,
	"strict_date":                     time.DateOnly,
	"year_month_day":                  time.DateOnly,
	"strict_year_month_day":           time.DateOnly,
	"basic_date":                      "20060102",
	"basic_date_time":                 "20060102T150405.000Z0700",
	"basic_date_time_no_millis":       "20060102T150405Z0700",
	"date_time":                       "2006-01-02T15:04:05.000Z07:00",
	"strict_date_time":                "2006-01-02T15:04:05.000Z07:00",
	"date_time_no_millis":             "2006-01-02T15:04:05Z07:00",
	"strict_date_time_no_millis":      "2006-01-02T15:04:05Z07:00",
	"date_optional_time":              time.RFC3339Nano,
	"strict_date_optional_time":       time.RFC3339Nano,
	"strict_date_optional_time_nanos": time.RFC3339Nano,
	"date_hour_minute_second":         "2006-01-02T15:04:05",
	"strict_date_hour_minute_second":  "2006-01-02T15:04:05",
	"date_hour_minute":                "2006-01-02T15:04",
	"year_month":                      "2006-01",
	"strict_year_month":               "2006-01",
	"year":                            "2006",
	"strict_year":                     "2006",
	"hour_minute_second":              "15:04:05",
	"strict_hour_minute_second":       "15:04:05",
}

// dateFormat is one entry of a date field's format list.
type dateFormat struct {
	epoch  time.Duration // set for epoch_millis and epoch_second
	layout string
}

func (f dateFormat) write(t time.Time) any {
	switch f.epoch {
	case time.Millisecond:
		return t.UnixMilli()
	case time.Second:
		return t.Unix()
	}
	return t.UTC().Format(f.layout)
}

func (f dateFormat) read(v any) (time.Time, bool) {
	if f.epoch > 0 {
		n, ok := epochValue(v)
		if !ok {
			return time.Time{}, false
		}
		if f.epoch == time.Second {
			return time.Unix(n, 0).UTC(), true
		}
		return time.UnixMilli(n).UTC(), true
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(f.layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func epochValue(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// dateFormats resolves the declared formats and patterns of a date field.
// Declared formats come first; without them, patterns come before the
// defaults. Unknown names are skipped.
func dateFormats(p entity.FieldParams) []dateFormat {
	patterns := make([]dateFormat, 0, len(p.Patterns))
	for _, pattern := range p.Patterns {
		layout, err := goLayout(pattern)
		if err != nil {
			continue
		}
		patterns = append(patterns, dateFormat{layout: layout})
	}
	if p.Formats == nil {
		return append(patterns, namedFormats(defaultDateFormats)...)
	}
	return append(namedFormats(p.Formats), patterns...)
}

var defaultDateFormats = []string{"date_optional_time", "epoch_millis"}

func namedFormats(names []string) []dateFormat {
	out := make([]dateFormat, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		switch name {
		case "epoch_millis":
			out = append(out, dateFormat{epoch: time.Millisecond})
		case "epoch_second":
			out = append(out, dateFormat{epoch: time.Second})
		default:
			if layout, ok := namedLayouts[name]; ok {
				out = append(out, dateFormat{layout: layout})
			}
		}
	}
	return out
}

// writeTime renders t with the first usable format, RFC 3339 otherwise.
func writeTime(t time.Time, p entity.FieldParams) any {
	if formats := dateFormats(p); len(formats) > 0 {
		return formats[0].write(t)
	}
	return t.Format(time.RFC3339Nano)
}

// readTime parses a stored date with the field's formats, falling back to
// RFC 3339, a bare date and epoch millis.
func readTime(v any, p entity.FieldParams) (time.Time, bool) {
	for _, f := range dateFormats(p) {
		if t, ok := f.read(v); ok {
			return t, true
		}
	}
	for _, f := range fallbackFormats {
		if t, ok := f.read(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

var fallbackFormats = []dateFormat{
	{layout: time.RFC3339Nano},
	{layout: time.DateOnly},
	{epoch: time.Millisecond},
}

// javaLayoutTokens maps date pattern letters, longest first per letter, to Go layout elements.
var javaLayoutTokens = []struct {
	pattern, layout string
}{
	{"uuuu", "2006"}, {"yyyy", "2006"}, {"uu", "06"}, {"yy", "06"}, {"u", "2006"}, {"y", "2006"},
	{"MMMM", "January"}, {"MMM", "Jan"}, {"MM", "01"}, {"M", "1"},
	{"dd", "02"}, {"d", "2"},
	{"EEEE", "Monday"}, {"EEE", "Mon"},
	{"HH", "15"}, {"H", "15"}, {"hh", "03"}, {"h", "3"},
	{"mm", "04"}, {"m", "4"},
	{"ss", "05"}, {"s", "5"},
	{"SSSSSSSSS", "000000000"}, {"SSSSSS", "000000"}, {"SSS", "000"},
	{"a", "PM"},
	{"XXX", "Z07:00"}, {"XX", "Z0700"}, {"Z", "-0700"},
}

// goLayout converts a date pattern such as dd.MM.uuuu into a Go time layout.
func goLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated literal in date pattern %q", pattern)
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			b.WriteByte(c)
			i++
			continue
		}
		matched := false
		for _, tok := range javaLayoutTokens {
			if strings.HasPrefix(pattern[i:], tok.pattern) {
				b.WriteString(tok.layout)
				i += len(tok.pattern)
				matched = true
				break
			}
		}
		if !matched {
			return "", fmt.Errorf("unsupported letter %q in date pattern %q", c, pattern)
		}
	}
	return b.String(), nil
}

// resolveDates returns a copy of doc with the date properties of e replaced
// by time values, recursing into sub-entities.
func (c *Converter) resolveDates(e *entity.Entity, doc map[string]any) map[string]any {
	var out map[string]any
	set := func(key string, v any) {
		if out == nil {
			out = make(map[string]any, len(doc))
			for k, old := range doc {
				out[k] = old
			}
		}
		out[key] = v
	}
	for _, p := range e.Properties() {
		raw, ok := doc[p.FieldName]
		if !ok || raw == nil {
			continue
		}
		switch {
		case p.ActualType == timeType:
			if v, changed := mapValues(raw, func(item any) (any, bool) {
				t, ok := readTime(item, p.Params)
				return t, ok
			}); changed {
				set(p.FieldName, v)
			}
		case p.IsEntity():
			sub, err := c.ctx.Describe(p.ActualType)
			if err != nil {
				continue
			}
			resolve := func(item any) (any, bool) {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, false
				}
				return c.resolveDates(sub, m), true
			}
			if p.IsMap() {
				m, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				values := make(map[string]any, len(m))
				for k, item := range m {
					values[k] = item
					if v, ok := resolve(item); ok {
						values[k] = v
					}
				}
				set(p.FieldName, values)
				continue
			}
			if v, changed := mapValues(raw, resolve); changed {
				set(p.FieldName, v)
			}
		}
	}
	if out == nil {
		return doc
	}
	return out
}

// mapValues applies fn to raw, or to each element when raw is a list.
func mapValues(raw any, fn func(any) (any, bool)) (any, bool) {
	list, ok := raw.([]any)
	if !ok {
		return fn(raw)
	}
	out := make([]any, len(list))
	changed := false
	for i, item := range list {
		out[i] = item
		if v, ok := fn(item); ok {
			out[i] = v
			changed = true
		}
	}
	return out, changed
}
