package notification

import (
	"fmt"
	"strings"

	"github.com/suteetoe/leasedesk/internal/model"
)

// Event is one notification intent, expanded into a row per recipient
type Event struct {
	Title      string                     `json:"title"`
	Message    string                     `json:"message"`
	Type       string                     `json:"type"`
	EntityType string                     `json:"entity_type,omitempty"`
	EntityID   uint                       `json:"entity_id,omitempty"`
	ActionURL  string                     `json:"action_url,omitempty"`
	Priority   model.NotificationPriority `json:"priority,omitempty"`
}

// LeaseMessage renders "<verb> lease for <tenant>: <Property – Unit>, ..."
func LeaseMessage(verb, tenantName string, unitLabels []string) string {
	msg := fmt.Sprintf("%s lease for %s", verb, tenantName)
	if len(unitLabels) > 0 {
		msg += ": " + strings.Join(unitLabels, ", ")
	}
	return msg
}

// row builds the notification stored for one recipient
func (ev Event) row(userID uint) model.Notification {
	n := model.Notification{
		UserID:     userID,
		Title:      ev.Title,
		Message:    ev.Message,
		Type:       ev.Type,
		EntityType: ev.EntityType,
		ActionURL:  ev.ActionURL,
		Priority:   ev.Priority,
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}
	if ev.EntityID != 0 {
		id := ev.EntityID
		n.EntityID = &id
	}
	return n
}
