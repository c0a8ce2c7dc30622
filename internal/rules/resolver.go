package rules

import (
	"context"

	"viewfilter/internal/datexpr"
	"viewfilter/internal/logger"
	"viewfilter/pkg/metrics"
)

type Resolver struct {
	schema   SchemaProvider
	expander MergeTagExpander
	clock    Clock
	logger   logger.Logger
}

type ResolverOption func(*Resolver)

func WithSchema(schema SchemaProvider) ResolverOption {
	return func(r *Resolver) {
		r.schema = schema
	}
}

func WithExpander(expander MergeTagExpander) ResolverOption {
	return func(r *Resolver) {
		r.expander = expander
	}
}

func WithClock(clock Clock) ResolverOption {
	return func(r *Resolver) {
		r.clock = clock
	}
}

func WithResolverLogger(log logger.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = log
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		schema:   DefaultSchema{},
		expander: NoopExpander(),
		clock:    NewSystemClock(nil),
		logger:   logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve substitutes the identity token, expands merge tags and normalizes
// date values. An unparseable date keeps its expanded value.
func (r *Resolver) Resolve(ctx context.Context, rule Rule, form *FormSchema, user UserID) ResolvedRule {
	out := ResolvedRule{Field: rule.Field, Operator: rule.Operator}

	if rule.IsIdentity() {
		out.Value = user
		return out
	}

	value := r.expander.Expand(ctx, rule.ValueString(), form, user)
	out.Value = value

	if r.schema.FieldType(form, rule.Field) != FieldTypeDate {
		return out
	}

	formatted, err := datexpr.Format(value, r.clock.LocalNow())
	if err != nil {
		metrics.IncDiagnostic(metrics.DiagnosticUnparseableDate)
		r.logger.WarnwCtx(ctx, "Date expression in filter value is invalid",
			"field", rule.Field,
			"value", value,
		)
		return out
	}

	out.Value = formatted
	return out
}
