package rules

import (
	"strconv"
)

// IdentityField is the reserved pseudo-field holding the id of the user who created a record.
const IdentityField = "created_by"

// IdentityToken is the rule value meaning "the currently logged-in user".
const IdentityToken = "created_by"

type Mode string

const (
	ModeAll Mode = "all"
	ModeAny Mode = "any"
)

func (m Mode) Valid() bool {
	return m == ModeAll || m == ModeAny
}

// Operator is owned by the retrieval layer; unknown operators are passed through.
type Operator string

const (
	OperatorIs         Operator = "is"
	OperatorIsNot      Operator = "isnot"
	OperatorGreater    Operator = ">"
	OperatorLess       Operator = "<"
	OperatorContains   Operator = "contains"
	OperatorStartsWith Operator = "starts_with"
	OperatorEndsWith   Operator = "ends_with"
	OperatorLike       Operator = "like"
	OperatorIn         Operator = "in"
	OperatorNotIn      Operator = "not in"
)

var DefaultOperators = []Operator{OperatorIs, OperatorIsNot, OperatorContains, OperatorGreater, OperatorLess}

type UserID int64

// AnonymousUser is the identity of a logged-out visitor. It matches no real record.
const AnonymousUser UserID = 0

func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

type Rule struct {
	Field    string
	Operator Operator
	Value    *string
}

func NewRule(field string, op Operator, value string) Rule {
	return Rule{Field: field, Operator: op, Value: &value}
}

// HasValue reports whether the rule carries a value. "0" counts, "" does not.
func (r Rule) HasValue() bool {
	return r.Value != nil && *r.Value != ""
}

func (r Rule) ValueString() string {
	if r.Value == nil {
		return ""
	}
	return *r.Value
}

func (r Rule) IsIdentity() bool {
	return r.Field == IdentityField && r.Value != nil && *r.Value == IdentityToken
}

// RuleSet is the full rule collection of one view. Mode is nil when the stored
// document carried no mode entry.
type RuleSet struct {
	Mode  *Mode
	Rules []Rule
}

func NewRuleSet(mode Mode, rules ...Rule) RuleSet {
	return RuleSet{Mode: &mode, Rules: rules}
}

// Entries counts rules plus the mode marker, the way the stored document does.
func (rs RuleSet) Entries() int {
	n := len(rs.Rules)
	if rs.Mode != nil {
		n++
	}
	return n
}

func (rs RuleSet) ModeOrDefault() Mode {
	if rs.Mode == nil {
		return ModeAll
	}
	return *rs.Mode
}

func (rs RuleSet) Clone() RuleSet {
	out := RuleSet{Rules: make([]Rule, len(rs.Rules))}
	if rs.Mode != nil {
		m := *rs.Mode
		out.Mode = &m
	}
	for i, r := range rs.Rules {
		out.Rules[i] = r
		if r.Value != nil {
			v := *r.Value
			out.Rules[i].Value = &v
		}
	}
	return out
}

// ResolvedRule is a rule whose value has been fully resolved. Value holds a
// string, or a UserID after identity substitution.
type ResolvedRule struct {
	Field    string      `json:"key"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

type FieldFilters struct {
	Mode Mode           `json:"mode,omitempty"`
	List []ResolvedRule `json:"list"`
}

type Sorting struct {
	Key       string `json:"key"`
	Direction string `json:"direction"`
}

type Paging struct {
	Offset   int `json:"offset"`
	PageSize int `json:"page_size"`
}

// Criteria is the query structure consumed by the record retrieval layer.
type Criteria struct {
	FieldFilters *FieldFilters `json:"field_filters,omitempty"`
	Status       string        `json:"status,omitempty"`
	StartDate    string        `json:"start_date,omitempty"`
	EndDate      string        `json:"end_date,omitempty"`
	Sorting      *Sorting      `json:"sorting,omitempty"`
	Paging       *Paging       `json:"paging,omitempty"`
}

func (c Criteria) Clone() Criteria {
	out := c
	if c.FieldFilters != nil {
		ff := FieldFilters{
			Mode: c.FieldFilters.Mode,
			List: make([]ResolvedRule, len(c.FieldFilters.List)),
		}
		copy(ff.List, c.FieldFilters.List)
		out.FieldFilters = &ff
	}
	if c.Sorting != nil {
		s := *c.Sorting
		out.Sorting = &s
	}
	if c.Paging != nil {
		p := *c.Paging
		out.Paging = &p
	}
	return out
}

type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
	FieldTypeSelect FieldType = "select"
	FieldTypeEntry  FieldType = "entry_meta"
)

type Choice struct {
	Text  string `json:"text" yaml:"text"`
	Value string `json:"value" yaml:"value"`
}

type FieldDescriptor struct {
	ID         string     `json:"id" yaml:"id"`
	Label      string     `json:"label" yaml:"label"`
	Type       FieldType  `json:"type" yaml:"type"`
	Operators  []Operator `json:"operators,omitempty" yaml:"operators"`
	Choices    []Choice   `json:"choices,omitempty" yaml:"choices"`
	Filterable *bool      `json:"filterable,omitempty" yaml:"filterable"`
}

func (f FieldDescriptor) IsFilterable() bool {
	return f.Filterable == nil || *f.Filterable
}

type FormSchema struct {
	ID     string            `json:"id" yaml:"id"`
	Title  string            `json:"title" yaml:"title"`
	Fields []FieldDescriptor `json:"fields" yaml:"fields"`
}

func (f *FormSchema) Field(id string) (FieldDescriptor, bool) {
	if f == nil {
		return FieldDescriptor{}, false
	}
	for _, fd := range f.Fields {
		if fd.ID == id {
			return fd, true
		}
	}
	return FieldDescriptor{}, false
}
