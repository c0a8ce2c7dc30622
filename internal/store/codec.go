package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"viewfilter/internal/rules"
)

// Format describes the shape a rule set was persisted in.
type Format string

const (
	FormatAbsent  Format = "absent"
	FormatNative  Format = "native"
	FormatLegacy  Format = "legacy"
	FormatInvalid Format = "invalid"
)

const modeKey = "mode"

// StoredValue is the raw persisted JSON of one view: an object for native
// data, or a JSON string holding an encoded object for legacy data.
type StoredValue []byte

type storedRule struct {
	Key      string         `json:"key"`
	Operator rules.Operator `json:"operator"`
	Value    *string        `json:"value,omitempty"`
}

// Decode turns a persisted value into a rule set. An empty document decodes
// to nil. Legacy string documents are decoded in memory only.
func Decode(raw StoredValue) (*rules.RuleSet, Format, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, FormatAbsent, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, FormatInvalid, fmt.Errorf("stored filters are not valid JSON")
	}

	doc := gjson.ParseBytes(trimmed)
	switch {
	case doc.Type == gjson.Null:
		return nil, FormatAbsent, nil
	case doc.Type == gjson.String:
		return decodeLegacy(doc.Str)
	case doc.IsObject():
		rs, err := decodeObject(doc)
		if err != nil {
			return nil, FormatInvalid, err
		}
		if rs == nil {
			return nil, FormatAbsent, nil
		}
		return rs, FormatNative, nil
	default:
		return nil, FormatInvalid, fmt.Errorf("stored filters must be an object, got %s", doc.Type)
	}
}

func decodeLegacy(text string) (*rules.RuleSet, Format, error) {
	if text == "" {
		return nil, FormatAbsent, nil
	}
	if !strings.HasPrefix(text, "{") {
		return nil, FormatLegacy, fmt.Errorf("legacy filters must hold a JSON object")
	}
	if !gjson.Valid(text) {
		return nil, FormatLegacy, fmt.Errorf("legacy filters are not valid JSON")
	}

	rs, err := decodeObject(gjson.Parse(text))
	if err != nil {
		return nil, FormatLegacy, err
	}
	if rs == nil {
		return nil, FormatAbsent, nil
	}
	return rs, FormatLegacy, nil
}

type keyedRule struct {
	key  string
	pos  int
	rule rules.Rule
}

func decodeObject(obj gjson.Result) (*rules.RuleSet, error) {
	var (
		rs      rules.RuleSet
		entries []keyedRule
		err     error
		seen    bool
	)

	obj.ForEach(func(key, value gjson.Result) bool {
		seen = true
		if key.String() == modeKey {
			if value.Type != gjson.String || !rules.Mode(value.Str).Valid() {
				err = fmt.Errorf("invalid mode %s", value.Raw)
				return false
			}
			m := rules.Mode(value.Str)
			rs.Mode = &m
			return true
		}

		var rule rules.Rule
		rule, err = decodeRule(value)
		if err != nil {
			err = fmt.Errorf("rule %q: %w", key.String(), err)
			return false
		}
		entries = append(entries, keyedRule{key: key.String(), rule: rule})
		return true
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		return nil, nil
	}

	sortPositional(entries)
	if len(entries) > 0 {
		rs.Rules = make([]rules.Rule, len(entries))
		for i, e := range entries {
			rs.Rules[i] = e.rule
		}
	}
	return &rs, nil
}

// sortPositional restores the written order when every rule key is a list
// index. Some backends hand objects back with their keys reordered.
func sortPositional(entries []keyedRule) {
	for i := range entries {
		n, err := strconv.Atoi(entries[i].key)
		if err != nil || n < 0 {
			return
		}
		entries[i].pos = n
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].pos < entries[j].pos
	})
}

func decodeRule(value gjson.Result) (rules.Rule, error) {
	if !value.IsObject() {
		return rules.Rule{}, fmt.Errorf("expected an object, got %s", value.Type)
	}

	var (
		rule rules.Rule
		err  error
	)
	value.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "key":
			rule.Field, err = scalarText(v)
		case "operator":
			var op string
			op, err = scalarText(v)
			rule.Operator = rules.Operator(op)
		case "value":
			if v.Type == gjson.Null {
				rule.Value = nil
				return true
			}
			var s string
			s, err = scalarText(v)
			rule.Value = &s
		default:
			err = fmt.Errorf("unknown field %q", k.String())
		}
		return err == nil
	})
	if err != nil {
		return rules.Rule{}, err
	}

	if rule.Field == "" {
		return rules.Rule{}, fmt.Errorf("missing key")
	}
	if rule.Operator == "" {
		return rules.Rule{}, fmt.Errorf("missing operator")
	}
	return rule, nil
}

// scalarText accepts strings and numbers. Numbers keep their literal text.
func scalarText(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.String:
		return v.Str, nil
	case gjson.Number:
		return v.Raw, nil
	default:
		return "", fmt.Errorf("expected a string or number, got %s", v.Raw)
	}
}

// Encode writes rs in the native flat form: rules under positional keys
// followed by the mode entry.
func Encode(rs rules.RuleSet) (StoredValue, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, r := range rs.Rules {
		if i > 0 {
			buf.WriteByte(',')
		}
		body, err := json.Marshal(storedRule{Key: r.Field, Operator: r.Operator, Value: r.Value})
		if err != nil {
			return nil, fmt.Errorf("failed to encode rule %d: %w", i, err)
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(i)))
		buf.WriteByte(':')
		buf.Write(body)
	}

	if rs.Mode != nil {
		if len(rs.Rules) > 0 {
			buf.WriteByte(',')
		}
		mode, err := json.Marshal(string(*rs.Mode))
		if err != nil {
			return nil, fmt.Errorf("failed to encode mode: %w", err)
		}
		buf.WriteString(`"` + modeKey + `":`)
		buf.Write(mode)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isLegacyString reports whether raw is a JSON string and returns its text.
func isLegacyString(raw StoredValue) (string, bool) {
	doc := gjson.ParseBytes(bytes.TrimSpace(raw))
	if doc.Type != gjson.String {
		return "", false
	}
	return doc.Str, true
}
