package viewfilter

import (
	"context"

	"viewfilter/internal/rules"
)

type Service interface {
	Criteria(ctx context.Context, viewID string, base rules.Criteria, user rules.UserID) (rules.Criteria, string)
	EditorPayload(ctx context.Context, viewID string, user rules.UserID) (*EditorPayload, error)
	SaveEditor(ctx context.Context, viewID string, ers rules.EditorRuleSet, changedBy rules.UserID) (*rules.RuleSet, error)
	AuditLogs(ctx context.Context, viewID string, limit int) ([]AuditLog, error)
}

// RuleStore is satisfied by *store.Store.
type RuleStore interface {
	Load(ctx context.Context, viewID string) (*rules.RuleSet, error)
	Save(ctx context.Context, viewID string, rs rules.RuleSet) error
}

// FormLookup maps a view to the form it displays.
type FormLookup interface {
	ViewForm(ctx context.Context, viewID string) (*rules.FormSchema, error)
}

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, entry AuditLog) error
	GetAuditLogs(ctx context.Context, viewID string, limit int) ([]AuditLog, error)
}

type EventNotifier interface {
	PublishViewFiltersEvent(ctx context.Context, viewID string, rs rules.RuleSet, changedBy string) error
}
