package rules

import (
	"context"

	"viewfilter/internal/logger"
	pkgerrors "viewfilter/pkg/errors"
	"viewfilter/pkg/metrics"
)

const (
	IdentityCatalogText = "Created By"
	IdentityOptionText  = "Logged-in User"
)

type CatalogOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

type CatalogEntry struct {
	Key       string          `json:"key"`
	Text      string          `json:"text"`
	Operators []Operator      `json:"operators"`
	Values    []CatalogOption `json:"values,omitempty"`
}

// FieldFiltersHook may rewrite the catalog handed to the editor.
type FieldFiltersHook func(ctx context.Context, viewID string, entries []CatalogEntry) []CatalogEntry

type CatalogBuilder struct {
	schema SchemaProvider
	hooks  []FieldFiltersHook
	logger logger.Logger
}

type BuilderOption func(*CatalogBuilder)

func WithFieldFiltersHook(hook FieldFiltersHook) BuilderOption {
	return func(b *CatalogBuilder) {
		b.hooks = append(b.hooks, hook)
	}
}

func WithCatalogLogger(log logger.Logger) BuilderOption {
	return func(b *CatalogBuilder) {
		b.logger = log
	}
}

func NewCatalogBuilder(schema SchemaProvider, opts ...BuilderOption) *CatalogBuilder {
	if schema == nil {
		schema = DefaultSchema{}
	}
	b := &CatalogBuilder{schema: schema, logger: logger.NopLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build lists the filterable fields of form. The identity field is always
// present and offers the logged-in user option first.
func (b *CatalogBuilder) Build(ctx context.Context, viewID string, form *FormSchema) ([]CatalogEntry, error) {
	if form == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "form not found").WithDetail("view_id", viewID)
	}

	fields := b.schema.FilterableFields(form)
	entries := make([]CatalogEntry, 0, len(fields)+1)
	hasIdentity := false

	for _, fd := range fields {
		if fd.ID == "" {
			return nil, pkgerrors.ErrInternal.
				WithDetail("message", "schema returned a field without id").
				WithDetail("form_id", form.ID).
				AsFatal()
		}

		entry := CatalogEntry{
			Key:       fd.ID,
			Text:      fd.Label,
			Operators: operatorsFor(fd),
		}
		for _, c := range fd.Choices {
			entry.Values = append(entry.Values, CatalogOption{Text: c.Text, Value: c.Value})
		}

		if fd.ID == IdentityField {
			hasIdentity = true
			entry = withIdentityOption(entry)
		}
		entries = append(entries, entry)
	}

	if !hasIdentity {
		entries = append(entries, withIdentityOption(CatalogEntry{
			Key:       IdentityField,
			Operators: []Operator{OperatorIs, OperatorIsNot},
		}))
	}

	for _, hook := range b.hooks {
		entries = hook(ctx, viewID, entries)
	}

	if len(entries) == 0 {
		metrics.IncDiagnostic(metrics.DiagnosticEmptyCatalog)
		b.logger.ErrorwCtx(ctx, "Filter settings were not properly set", "view_id", viewID, "form_id", form.ID)
	}

	return entries, nil
}

func withIdentityOption(entry CatalogEntry) CatalogEntry {
	entry.Text = IdentityCatalogText
	entry.Values = append([]CatalogOption{{Text: IdentityOptionText, Value: IdentityToken}}, entry.Values...)
	return entry
}

func operatorsFor(fd FieldDescriptor) []Operator {
	if len(fd.Operators) > 0 {
		return append([]Operator(nil), fd.Operators...)
	}

	switch fd.Type {
	case FieldTypeText:
		return []Operator{OperatorIs, OperatorIsNot, OperatorContains, OperatorStartsWith, OperatorEndsWith}
	case FieldTypeNumber, FieldTypeDate:
		return []Operator{OperatorIs, OperatorIsNot, OperatorGreater, OperatorLess}
	case FieldTypeSelect:
		return []Operator{OperatorIs, OperatorIsNot, OperatorContains}
	case FieldTypeEntry:
		return []Operator{OperatorIs, OperatorIsNot}
	default:
		return append([]Operator(nil), DefaultOperators...)
	}
}
