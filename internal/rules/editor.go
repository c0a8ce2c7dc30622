package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	pkgerrors "viewfilter/pkg/errors"
)

// FieldRef is a field identifier as the editor sends it, either a JSON
// string or a JSON number.
type FieldRef string

func (f *FieldRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FieldRef(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("field must be a string or a number: %w", err)
	}
	*f = FieldRef(n.String())
	return nil
}

type EditorRule struct {
	Field    FieldRef `json:"field"`
	Operator Operator `json:"operator"`
	Value    *string  `json:"value"`
}

type EditorRuleSet struct {
	Mode    Mode         `json:"mode,omitempty"`
	Filters []EditorRule `json:"filters"`
}

// DefaultEditorState is what the editor starts from on a view without rules.
func DefaultEditorState() EditorRuleSet {
	empty := ""
	return EditorRuleSet{
		Mode: ModeAll,
		Filters: []EditorRule{
			{Field: "0", Operator: OperatorContains, Value: &empty},
		},
	}
}

type editorOptions struct {
	resolveIdentity bool
	user            UserID
}

type EditorOption func(*editorOptions)

// WithIdentity replaces the identity token with the given user's id in the
// editor shape. The result no longer converts back to the same rule set.
func WithIdentity(user UserID) EditorOption {
	return func(o *editorOptions) {
		o.resolveIdentity = true
		o.user = user
	}
}

// ToEditorShape converts a stored rule set for the editor. The identity token
// is left in place unless WithIdentity is given, so the editor keeps showing
// the logged-in user option and the result converts back unchanged.
func ToEditorShape(rs RuleSet, opts ...EditorOption) EditorRuleSet {
	var o editorOptions
	for _, opt := range opts {
		opt(&o)
	}

	out := EditorRuleSet{Filters: make([]EditorRule, 0, len(rs.Rules))}
	if rs.Mode != nil {
		out.Mode = *rs.Mode
	}

	for _, rule := range rs.Clone().Rules {
		er := EditorRule{Field: FieldRef(rule.Field), Operator: rule.Operator, Value: rule.Value}
		if o.resolveIdentity && rule.IsIdentity() {
			v := o.user.String()
			er.Value = &v
		}
		out.Filters = append(out.Filters, er)
	}
	return out
}

func ToStorageShape(ers EditorRuleSet) (RuleSet, error) {
	var rs RuleSet

	if ers.Mode != "" {
		if !ers.Mode.Valid() {
			return RuleSet{}, pkgerrors.ErrValidation.
				WithDetail("message", fmt.Sprintf("mode must be %q or %q", ModeAll, ModeAny)).
				WithDetail("mode", string(ers.Mode))
		}
		mode := ers.Mode
		rs.Mode = &mode
	}

	rs.Rules = make([]Rule, 0, len(ers.Filters))
	for i, f := range ers.Filters {
		if f.Field == "" {
			return RuleSet{}, pkgerrors.ErrValidation.
				WithDetail("message", "filter field is required").
				WithDetail("index", i)
		}
		if f.Operator == "" {
			return RuleSet{}, pkgerrors.ErrValidation.
				WithDetail("message", "filter operator is required").
				WithDetail("index", i)
		}
		rule := Rule{Field: string(f.Field), Operator: f.Operator}
		if f.Value != nil {
			v := *f.Value
			rule.Value = &v
		}
		rs.Rules = append(rs.Rules, rule)
	}

	return rs, nil
}
