package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	got []LeaseEvent
}

func (c *capture) Publish(_ context.Context, ev LeaseEvent) error {
	c.got = append(c.got, ev)
	return nil
}

func (c *capture) Close() error { return nil }

func TestNewLeaseEventAndMessage(t *testing.T) {
	lease := &model.Lease{
		ID:       5,
		TenantID: 2,
		Status:   model.LeaseActive,
		LeaseUnits: []model.LeaseUnit{
			{UnitID: 11}, {UnitID: 12},
		},
	}

	ev := NewLeaseEvent(LeaseCreated, lease, 9)
	assert.Equal(t, []uint{11, 12}, ev.UnitIDs)
	assert.Equal(t, uint(9), ev.ActorID)

	msg, err := Message(ev)
	require.NoError(t, err)
	assert.Equal(t, "5", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, LeaseCreated, string(msg.Headers[0].Value))

	var decoded LeaseEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, model.LeaseActive, decoded.Status)
}

func TestOutboxHandler(t *testing.T) {
	c := &capture{}
	payload, err := json.Marshal(LeaseEvent{Type: LeaseDeleted, LeaseID: 3})
	require.NoError(t, err)

	require.NoError(t, OutboxHandler(c)(context.Background(), payload))
	require.Len(t, c.got, 1)
	assert.Equal(t, LeaseDeleted, c.got[0].Type)

	assert.Error(t, OutboxHandler(c)(context.Background(), []byte("nope")))
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), LeaseEvent{}))
}
