package lease

import (
	"fmt"

	"github.com/suteetoe/leasedesk/internal/audit"
	"github.com/suteetoe/leasedesk/internal/events"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/notification"
	"github.com/suteetoe/leasedesk/internal/outbox"

	"gorm.io/gorm"
)

// EntityType names leases in audit logs and notifications
const EntityType = "Lease"

// intent describes the side effects of one lease mutation
type intent struct {
	title     string
	verb      string
	eventType string
	action    model.AuditAction
	priority  model.NotificationPriority
	changes   interface{}
}

var (
	createdIntent = intent{
		title: "Lease Created", verb: "New", eventType: events.LeaseCreated,
		action: model.AuditCreate, priority: model.PriorityMedium,
	}
	updatedIntent = intent{
		title: "Lease Updated", verb: "Updated", eventType: events.LeaseUpdated,
		action: model.AuditUpdate, priority: model.PriorityMedium,
	}
	terminatedIntent = intent{
		title: "Lease Terminated", verb: "Terminated", eventType: events.LeaseTerminated,
		action: model.AuditTerminate, priority: model.PriorityHigh,
	}
	deletedIntent = intent{
		title: "Lease Deleted", verb: "Deleted", eventType: events.LeaseDeleted,
		action: model.AuditDelete, priority: model.PriorityHigh,
	}
	expiredIntent = intent{
		title: "Lease Expired", verb: "Expired", eventType: events.LeaseExpired,
		action: model.AuditUpdate, priority: model.PriorityMedium,
	}
)

func (it intent) with(changes interface{}) intent {
	it.changes = changes
	return it
}

// enqueue writes the audit entry, notification event and lease event for
// lease into the outbox using tx
func enqueue(tx *gorm.DB, actorID uint, lease *model.Lease, it intent) ([]model.OutboxMessage, error) {
	entry, err := audit.NewEntry(EntityType, lease.ID, it.action, actorID, it.changes)
	if err != nil {
		return nil, err
	}

	ev := notification.Event{
		Title:      it.title,
		Message:    notification.LeaseMessage(it.verb, lease.Tenant.Name, lease.UnitLabels()),
		Type:       model.NotificationTypeLease,
		EntityType: EntityType,
		EntityID:   lease.ID,
		ActionURL:  fmt.Sprintf("/leases/%d", lease.ID),
		Priority:   it.priority,
	}

	payloads := []struct {
		kind string
		body interface{}
	}{
		{outbox.KindAudit, entry},
		{outbox.KindNotify, ev},
		{outbox.KindLeaseEvent, events.NewLeaseEvent(it.eventType, lease, actorID)},
	}

	msgs := make([]model.OutboxMessage, 0, len(payloads))
	for _, p := range payloads {
		msg, err := outbox.Enqueue(tx, p.kind, p.body)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
