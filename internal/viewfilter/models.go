package viewfilter

import (
	"time"

	"viewfilter/internal/rules"
)

// IdentityHelpText explains the logged-in user option in the editor.
const IdentityHelpText = "Show only entries created by the currently logged-in user. " +
	"Visitors who are not logged in will see no entries."

type EditorPayload struct {
	Catalog []rules.CatalogEntry `json:"catalog"`
	Initial rules.EditorRuleSet  `json:"initial"`
	Help    string               `json:"help"`
}

type CriteriaRequest struct {
	Base rules.Criteria `json:"base"`
}

type CriteriaResponse struct {
	ViewID   string         `json:"view_id"`
	Criteria rules.Criteria `json:"criteria"`
	Result   string         `json:"result"`
}

type SaveResponse struct {
	ViewID  string              `json:"view_id"`
	Filters rules.EditorRuleSet `json:"filters"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	ViewID    string    `json:"view_id"`
	Action    string    `json:"action"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
