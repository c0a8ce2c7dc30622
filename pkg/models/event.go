package models

import "time"

const EventTypeViewFiltersUpdated = "view_filters_updated"

const ActionSave = "save"

// ViewFiltersEvent announces that the rule set of a view was replaced.
// Consumers reload the view; the rules themselves are not carried.
type ViewFiltersEvent struct {
	EventType string    `json:"event_type"`
	ViewID    string    `json:"view_id"`
	Action    string    `json:"action"`
	Mode      string    `json:"mode,omitempty"`
	RuleCount int       `json:"rule_count"`
	ChangedBy string    `json:"changed_by,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e ViewFiltersEvent) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"event_type": e.EventType,
		"view_id":    e.ViewID,
		"action":     e.Action,
		"rule_count": e.RuleCount,
		"timestamp":  e.Timestamp,
	}
	if e.Mode != "" {
		payload["mode"] = e.Mode
	}
	if e.ChangedBy != "" {
		payload["changed_by"] = e.ChangedBy
	}
	return payload
}
