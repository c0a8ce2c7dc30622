package viewfilter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"viewfilter/internal/constants"
	"viewfilter/internal/logger"
	"viewfilter/internal/rules"
	"viewfilter/internal/store"
	pkgerrors "viewfilter/pkg/errors"
	"viewfilter/pkg/logging"
	"viewfilter/pkg/metrics"
	"viewfilter/pkg/models"
	"viewfilter/pkg/tracing"
)

const CompileLoadFailed = "load_failed"

type service struct {
	store           RuleStore
	forms           FormLookup
	compiler        *rules.Compiler
	catalog         *rules.CatalogBuilder
	audit           AuditRepository
	notifier        EventNotifier
	logger          logger.Logger
	resolveIdentity bool
}

type ServiceOption func(*service)

func WithCompiler(compiler *rules.Compiler) ServiceOption {
	return func(s *service) {
		s.compiler = compiler
	}
}

func WithCatalog(catalog *rules.CatalogBuilder) ServiceOption {
	return func(s *service) {
		s.catalog = catalog
	}
}

func WithAudit(audit AuditRepository) ServiceOption {
	return func(s *service) {
		s.audit = audit
	}
}

func WithNotifier(notifier EventNotifier) ServiceOption {
	return func(s *service) {
		s.notifier = notifier
	}
}

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

// WithEditorIdentity shows the requesting user's id instead of the identity
// token in the editor payload.
func WithEditorIdentity(enabled bool) ServiceOption {
	return func(s *service) {
		s.resolveIdentity = enabled
	}
}

func NewService(ruleStore RuleStore, forms FormLookup, opts ...ServiceOption) Service {
	s := &service{
		store:  ruleStore,
		forms:  forms,
		logger: logger.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.compiler == nil {
		s.compiler = rules.NewCompiler(nil, s.logger)
	}
	if s.catalog == nil {
		s.catalog = rules.NewCatalogBuilder(nil, rules.WithCatalogLogger(s.logger))
	}

	return s
}

// Criteria returns base extended with the view's rules. Every failure
// degrades to base so a broken rule set never blocks rendering.
func (s *service) Criteria(ctx context.Context, viewID string, base rules.Criteria, user rules.UserID) (rules.Criteria, string) {
	ctx, span := tracing.StartViewSpan(ctx, constants.ServiceName, "viewfilter.Criteria", viewID)
	defer span.End()

	start := time.Now()
	criteria, result := s.criteria(logging.WithViewID(ctx, viewID), viewID, base, user)

	span.SetAttributes(attribute.String("viewfilter.result", result))
	metrics.IncCompilation(result)
	metrics.ObserveCompileDuration(result, time.Since(start))
	return criteria, result
}

func (s *service) criteria(ctx context.Context, viewID string, base rules.Criteria, user rules.UserID) (rules.Criteria, string) {
	if viewID == "" {
		return s.compiler.CompileWithResult(ctx, viewID, nil, nil, user, base)
	}

	rs, err := s.store.Load(ctx, viewID)
	if err != nil {
		metrics.IncDiagnostic(metrics.DiagnosticLoadFailed)
		s.logger.WarnwCtx(ctx, "Failed to load view filters, rendering without them", "error", err)
		return base, CompileLoadFailed
	}
	if rs == nil {
		return s.compiler.CompileWithResult(ctx, viewID, nil, nil, user, base)
	}

	form, err := s.forms.ViewForm(ctx, viewID)
	if err != nil && !pkgerrors.IsNotFound(err) {
		metrics.IncDiagnostic(metrics.DiagnosticFormLookupFailed)
		s.logger.WarnwCtx(ctx, "Failed to look up view form, rendering without filters", "error", err)
		return base, rules.CompileMissingContext
	}

	return s.compiler.CompileWithResult(ctx, viewID, rs, form, user, base)
}

func (s *service) EditorPayload(ctx context.Context, viewID string, user rules.UserID) (*EditorPayload, error) {
	if viewID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "view id is required")
	}
	ctx = logging.WithViewID(ctx, viewID)

	form, err := s.forms.ViewForm(ctx, viewID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	catalog, err := s.catalog.Build(ctx, viewID, form)
	if err != nil {
		return nil, err
	}

	rs, err := s.store.Load(ctx, viewID)
	if err != nil {
		return nil, err
	}

	initial := rules.DefaultEditorState()
	if rs != nil && len(rs.Rules) > 0 {
		var opts []rules.EditorOption
		if s.resolveIdentity {
			opts = append(opts, rules.WithIdentity(user))
		}
		initial = rules.ToEditorShape(*rs, opts...)
	}

	return &EditorPayload{
		Catalog: catalog,
		Initial: initial,
		Help:    IdentityHelpText,
	}, nil
}

// SaveEditor replaces the view's rule set with the edited one. Only fields
// offered by the view's catalog are accepted.
func (s *service) SaveEditor(ctx context.Context, viewID string, ers rules.EditorRuleSet, changedBy rules.UserID) (*rules.RuleSet, error) {
	ctx, span := tracing.StartViewSpan(ctx, constants.ServiceName, "viewfilter.SaveEditor", viewID,
		attribute.Int("view.filters.rules", len(ers.Filters)),
	)
	defer span.End()

	rs, err := s.saveEditor(ctx, viewID, ers, changedBy)
	if err != nil {
		tracing.Fail(span, err, "save failed")
	}
	return rs, err
}

func (s *service) saveEditor(ctx context.Context, viewID string, ers rules.EditorRuleSet, changedBy rules.UserID) (*rules.RuleSet, error) {
	if viewID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "view id is required")
	}
	if ers.Mode == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "mode is required")
	}
	ctx = logging.WithViewID(ctx, viewID)

	rs, err := rules.ToStorageShape(ers)
	if err != nil {
		return nil, err
	}

	form, err := s.forms.ViewForm(ctx, viewID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	catalog, err := s.catalog.Build(ctx, viewID, form)
	if err != nil {
		return nil, err
	}
	if err := validateFields(rs, catalog); err != nil {
		return nil, err
	}

	previous, err := s.store.Load(ctx, viewID)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to load previous view filters for audit", "error", err)
		previous = nil
	}

	if err := s.store.Save(ctx, viewID, rs); err != nil {
		return nil, err
	}

	s.logger.InfowCtx(ctx, "View filters saved",
		"rules", len(rs.Rules),
		"mode", rs.ModeOrDefault(),
		"changed_by", changedBy.String(),
	)

	s.recordAudit(ctx, viewID, previous, rs, changedBy)
	s.publish(ctx, viewID, rs, changedBy)

	return &rs, nil
}

func validateFields(rs rules.RuleSet, catalog []rules.CatalogEntry) error {
	allowed := make(map[string]struct{}, len(catalog))
	for _, entry := range catalog {
		allowed[entry.Key] = struct{}{}
	}

	for i, rule := range rs.Rules {
		if _, ok := allowed[rule.Field]; !ok {
			return pkgerrors.ErrValidation.
				WithDetail("message", "field is not filterable in this view").
				WithDetail("field", rule.Field).
				WithDetail("index", i)
		}
	}
	return nil
}

func (s *service) recordAudit(ctx context.Context, viewID string, previous *rules.RuleSet, current rules.RuleSet, changedBy rules.UserID) {
	if s.audit == nil {
		return
	}

	entry := AuditLog{
		ViewID:    viewID,
		Action:    models.ActionSave,
		ChangedBy: changedBy.String(),
	}
	if previous != nil {
		if raw, err := store.Encode(*previous); err == nil {
			entry.OldValue = string(raw)
		}
	}
	if raw, err := store.Encode(current); err == nil {
		entry.NewValue = string(raw)
	}

	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to write view filters audit log", "error", err)
	}
}

func (s *service) publish(ctx context.Context, viewID string, rs rules.RuleSet, changedBy rules.UserID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishViewFiltersEvent(ctx, viewID, rs, changedBy.String()); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to publish view filters event", "error", err)
	}
}

func (s *service) AuditLogs(ctx context.Context, viewID string, limit int) ([]AuditLog, error) {
	if s.audit == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}

	logs, err := s.audit.GetAuditLogs(ctx, viewID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if logs == nil {
		logs = []AuditLog{}
	}
	return logs, nil
}
