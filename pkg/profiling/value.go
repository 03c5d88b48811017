package profiling

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ValueKind is the declared shape of a question's extracted value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindEnum   ValueKind = "enum"
	KindList   ValueKind = "list"
)

func (k ValueKind) valid() bool {
	switch k {
	case KindString, KindEnum, KindList:
		return true
	}
	return false
}

// ExtractedValue is a tagged union: Text carries string and enum values,
// List carries list values. The zero value means "nothing extracted".
type ExtractedValue struct {
	Kind ValueKind `json:"kind,omitempty"`
	Text string    `json:"text,omitempty"`
	List []string  `json:"list,omitempty"`
}

func StringValue(s string) ExtractedValue { return ExtractedValue{Kind: KindString, Text: s} }

func EnumValue(s string) ExtractedValue { return ExtractedValue{Kind: KindEnum, Text: s} }

// ListValue never stores a nil slice so an explicit "none" survives a
// round trip as an empty list.
func ListValue(items []string) ExtractedValue {
	if items == nil {
		items = []string{}
	}
	return ExtractedValue{Kind: KindList, List: items}
}

func (v ExtractedValue) IsZero() bool { return v.Kind == "" }

// Items returns the value as a list regardless of kind.
func (v ExtractedValue) Items() []string {
	switch v.Kind {
	case KindList:
		return append([]string(nil), v.List...)
	case KindString, KindEnum:
		if v.Text == "" {
			return nil
		}
		return []string{v.Text}
	}
	return nil
}

func (v ExtractedValue) String() string {
	if v.Kind == KindList {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

// MarshalJSON keeps the list form explicit even when empty.
func (v ExtractedValue) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind ValueKind `json:"kind,omitempty"`
		Text string    `json:"text,omitempty"`
		List *[]string `json:"list,omitempty"`
	}
	w := wire{Kind: v.Kind, Text: v.Text}
	if v.Kind == KindList {
		list := v.List
		if list == nil {
			list = []string{}
		}
		w.List = &list
	}
	return json.Marshal(w)
}

var noneAnswers = map[string]bool{
	"none": true, "no": true, "nothing": true, "n/a": true, "na": true, "null": true,
	"no restrictions": true, "no limitations": true, "nope": true,
}

var listSplitter = regexp.MustCompile(`\s*(?:,|;|\band\b|\n)\s*`)

// normalizeValue coerces whatever the understanding function produced into
// the question's declared kind. Enum values outside the vocabulary fall back
// to the question default; an unusable value yields the zero value.
func normalizeValue(q QuestionDefinition, raw interface{}) ExtractedValue {
	switch q.ValueKind {
	case KindEnum:
		s := enumToken(scalarString(raw))
		if s != "" && q.allows(s) {
			return EnumValue(s)
		}
		if q.Default != "" {
			return EnumValue(q.Default)
		}
		return ExtractedValue{}
	case KindList:
		items, ok := listItems(raw)
		if !ok {
			return ExtractedValue{}
		}
		return ListValue(items)
	default:
		s := strings.TrimSpace(scalarString(raw))
		if s == "" {
			return ExtractedValue{}
		}
		return StringValue(s)
	}
}

// fallbackValue is used when an answer is force-accepted without a usable
// extraction.
func fallbackValue(q QuestionDefinition, answer string) ExtractedValue {
	switch q.ValueKind {
	case KindEnum:
		if q.Default != "" {
			return EnumValue(q.Default)
		}
		return ExtractedValue{}
	case KindList:
		items, _ := listItems(answer)
		return ListValue(items)
	default:
		return StringValue(strings.TrimSpace(answer))
	}
}

func scalarString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			return scalarString(v[0])
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func enumToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}

func listItems(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(scalarString(item)); s != "" && !noneAnswers[strings.ToLower(s)] {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" && !noneAnswers[strings.ToLower(s)] {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, false
		}
		if noneAnswers[strings.ToLower(strings.Trim(s, ".! "))] {
			return []string{}, true
		}
		var out []string
		for _, part := range listSplitter.Split(s, -1) {
			if part = strings.Trim(part, ".! "); part != "" {
				out = append(out, part)
			}
		}
		return out, true
	default:
		return []string{fmt.Sprint(v)}, true
	}
}
