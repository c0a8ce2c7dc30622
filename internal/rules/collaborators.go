package rules

import (
	"context"
	"time"
)

type SchemaProvider interface {
	Form(ctx context.Context, formID string) (*FormSchema, error)
	FieldType(form *FormSchema, fieldID string) FieldType
	FilterableFields(form *FormSchema) []FieldDescriptor
}

type MergeTagExpander interface {
	Expand(ctx context.Context, text string, form *FormSchema, user UserID) string
}

type Clock interface {
	LocalNow() time.Time
}

type UserProvider interface {
	CurrentUserID(ctx context.Context) UserID
}

type ClockFunc func() time.Time

func (f ClockFunc) LocalNow() time.Time {
	return f()
}

type systemClock struct {
	loc *time.Location
}

func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) LocalNow() time.Time {
	return time.Now().In(c.loc)
}

type FixedUser UserID

func (u FixedUser) CurrentUserID(context.Context) UserID {
	return UserID(u)
}

type noopExpander struct{}

func (noopExpander) Expand(_ context.Context, text string, _ *FormSchema, _ UserID) string {
	return text
}

// NoopExpander returns text untouched.
func NoopExpander() MergeTagExpander {
	return noopExpander{}
}

// DefaultSchema answers type and eligibility questions from the form itself.
type DefaultSchema struct{}

func (DefaultSchema) Form(context.Context, string) (*FormSchema, error) {
	return nil, nil
}

func (DefaultSchema) FieldType(form *FormSchema, fieldID string) FieldType {
	fd, ok := form.Field(fieldID)
	if !ok {
		return ""
	}
	return fd.Type
}

func (DefaultSchema) FilterableFields(form *FormSchema) []FieldDescriptor {
	if form == nil {
		return nil
	}
	out := make([]FieldDescriptor, 0, len(form.Fields))
	for _, fd := range form.Fields {
		if fd.IsFilterable() {
			out = append(out, fd)
		}
	}
	return out
}
