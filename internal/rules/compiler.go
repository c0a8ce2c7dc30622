package rules

import (
	"context"

	"viewfilter/internal/logger"
	"viewfilter/pkg/metrics"
)

const (
	CompileApplied        = "applied"
	CompileBelowThreshold = "below_threshold"
	CompileNoRules        = "no_rules"
	CompileMissingContext = "missing_context"
)

type Compiler struct {
	resolver *Resolver
	logger   logger.Logger
}

func NewCompiler(resolver *Resolver, log logger.Logger) *Compiler {
	if resolver == nil {
		resolver = NewResolver()
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Compiler{resolver: resolver, logger: log}
}

// Compile appends the resolved rules of rs to a copy of base. base is
// returned unchanged when the view or form is unknown, when rs is nil, or
// when fewer than two entries (rules with a value, plus the mode marker)
// remain.
func (c *Compiler) Compile(ctx context.Context, viewID string, rs *RuleSet, form *FormSchema, user UserID, base Criteria) Criteria {
	criteria, _ := c.CompileWithResult(ctx, viewID, rs, form, user, base)
	return criteria
}

func (c *Compiler) CompileWithResult(ctx context.Context, viewID string, rs *RuleSet, form *FormSchema, user UserID, base Criteria) (Criteria, string) {
	if viewID == "" {
		metrics.IncDiagnostic(metrics.DiagnosticMissingContext)
		c.logger.ErrorwCtx(ctx, "Empty view ID, filters not applied")
		return base, CompileMissingContext
	}

	if rs == nil {
		c.logger.DebugwCtx(ctx, "No additional search criteria", "view_id", viewID)
		return base, CompileNoRules
	}

	if form == nil {
		metrics.IncDiagnostic(metrics.DiagnosticMissingContext)
		c.logger.ErrorwCtx(ctx, "View has no form schema, filters not applied", "view_id", viewID)
		return base, CompileMissingContext
	}

	remaining := make([]Rule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		if rule.HasValue() {
			remaining = append(remaining, rule)
		}
	}
	if dropped := len(rs.Rules) - len(remaining); dropped > 0 {
		metrics.AddRulesDropped(dropped)
	}

	entries := len(remaining)
	if rs.Mode != nil {
		entries++
	}
	if entries <= 1 {
		c.logger.DebugwCtx(ctx, "Not enough filter entries to apply",
			"view_id", viewID,
			"entries", entries,
		)
		return base, CompileBelowThreshold
	}

	out := base.Clone()
	if out.FieldFilters == nil {
		out.FieldFilters = &FieldFilters{}
	}
	if rs.Mode != nil {
		out.FieldFilters.Mode = *rs.Mode
	}
	for _, rule := range remaining {
		out.FieldFilters.List = append(out.FieldFilters.List, c.resolver.Resolve(ctx, rule, form, user))
	}

	metrics.AddRulesEmitted(string(out.FieldFilters.Mode), len(remaining))
	c.logger.DebugwCtx(ctx, "Added search criteria",
		"view_id", viewID,
		"rules", len(remaining),
		"mode", out.FieldFilters.Mode,
	)

	return out, CompileApplied
}
