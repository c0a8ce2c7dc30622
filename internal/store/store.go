package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"viewfilter/internal/logger"
	"viewfilter/internal/rules"
	pkgerrors "viewfilter/pkg/errors"
	"viewfilter/pkg/metrics"
	"viewfilter/pkg/retry"
	"viewfilter/pkg/tracing"
)

const tracerName = "viewfilter-store"

// ViewFiltersHook may rewrite the rule set loaded for a view. Returning nil
// removes it.
type ViewFiltersHook func(ctx context.Context, viewID string, rs *rules.RuleSet) *rules.RuleSet

// Store reads and writes the rule set of each view. Persisted legacy data is
// migrated in memory and never rewritten on read.
type Store struct {
	repo   Repository
	logger logger.Logger
	policy retry.Policy
	hooks  []ViewFiltersHook
}

type Option func(*Store)

func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		s.logger = log
	}
}

func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

func WithViewFiltersHook(hook ViewFiltersHook) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, hook)
	}
}

func New(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: logger.NopLogger(),
		policy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the rule set of viewID, or nil when the view has none.
// Undecodable documents are reported and treated as absent.
func (s *Store) Load(ctx context.Context, viewID string) (*rules.RuleSet, error) {
	ctx, span := tracing.StartViewSpan(ctx, tracerName, "store.Load", viewID)
	defer span.End()

	var raw StoredValue
	err := retry.RetryWithCallback(ctx, s.policy, func() error {
		var err error
		raw, err = s.repo.Get(ctx, viewID)
		return err
	}, s.onRetry(ctx, "load", viewID))

	if pkgerrors.IsNotFound(err) {
		metrics.IncRuleSetLoad(string(FormatAbsent))
		return s.applyHooks(ctx, viewID, nil), nil
	}
	if err != nil {
		tracing.Fail(span, err, "load failed")
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable).WithDetail("view_id", viewID)
	}

	rs, format, err := Decode(raw)
	span.SetAttributes(attribute.String("view.filters.format", string(format)))
	if err != nil {
		kind := metrics.DiagnosticRuleDecode
		if format == FormatLegacy {
			kind = metrics.DiagnosticLegacyDecode
		}
		metrics.IncDiagnostic(kind)
		s.logger.WarnwCtx(ctx, "Stored view filters could not be decoded, treating as empty",
			"view_id", viewID,
			"format", format,
			"error", err,
		)
		rs, format = nil, FormatInvalid
	}

	metrics.IncRuleSetLoad(string(format))
	return s.applyHooks(ctx, viewID, rs), nil
}

func (s *Store) applyHooks(ctx context.Context, viewID string, rs *rules.RuleSet) *rules.RuleSet {
	if rs == nil {
		return nil
	}
	for _, hook := range s.hooks {
		rs = hook(ctx, viewID, rs)
		if rs == nil {
			return nil
		}
	}
	return rs
}

// Save replaces the stored rule set of viewID. The last write wins.
func (s *Store) Save(ctx context.Context, viewID string, rs rules.RuleSet) error {
	ctx, span := tracing.StartViewSpan(ctx, tracerName, "store.Save", viewID,
		attribute.Int("view.filters.rules", len(rs.Rules)),
	)
	defer span.End()

	if viewID == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "view id is required")
	}

	raw, err := Encode(rs)
	if err != nil {
		metrics.IncRuleSetSave("error")
		return pkgerrors.ErrInternal.WithCause(err).AsFatal()
	}

	err = retry.RetryWithCallback(ctx, s.policy, func() error {
		return s.repo.Put(ctx, viewID, raw)
	}, s.onRetry(ctx, "save", viewID))
	if err != nil {
		metrics.IncRuleSetSave("error")
		tracing.Fail(span, err, "save failed")
		return pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable).WithDetail("view_id", viewID)
	}

	metrics.IncRuleSetSave("success")
	return nil
}

func (s *Store) onRetry(ctx context.Context, operation, viewID string) retry.OnRetry {
	return func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt(serviceName, operation)
		s.logger.WarnwCtx(ctx, "Retrying view filters "+operation,
			"view_id", viewID,
			"attempt", attempt,
			"max_attempts", s.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
		)
	}
}
