package lease

import (
	"context"
	"testing"

	"github.com/suteetoe/leasedesk/internal/events"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	active, err := f.svc.Create(ctx, f.actor, f.createInput(model.LeaseActive,
		UnitInput{UnitID: f.u101.ID, RentAmount: 10000}))
	require.NoError(t, err)
	pending, err := f.svc.Create(ctx, f.actor, f.createInput(model.LeasePending,
		UnitInput{UnitID: f.u102.ID, RentAmount: 15000}))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, active.ID)
	require.NoError(t, err)
	require.Len(t, got.LeaseUnits, 1)
	assert.Equal(t, "Tower A", got.LeaseUnits[0].Unit.Property.Name)

	all, total, err := f.svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)
	assert.Equal(t, pending.ID, all[0].ID)
	assert.Equal(t, "Acme Corp", all[0].Tenant.Name)

	byStatus, total, err := f.svc.List(ctx, Filter{Status: model.LeaseActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byStatus, 1)
	assert.Equal(t, active.ID, byStatus[0].ID)

	byUnit, total, err := f.svc.List(ctx, Filter{UnitID: f.u102.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byUnit, 1)
	assert.Equal(t, pending.ID, byUnit[0].ID)

	page, total, err := f.svc.List(ctx, Filter{TenantID: f.tenant.ID, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, active.ID, page[0].ID)
}

func TestExpireDue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	due, err := f.svc.Create(ctx, f.actor, f.createInput(model.LeaseActive,
		UnitInput{UnitID: f.u101.ID, RentAmount: 10000}))
	require.NoError(t, err)

	later := f.createInput(model.LeaseActive, UnitInput{UnitID: f.u102.ID, RentAmount: 15000})
	later.EndDate = date("2025-12-31")
	_, err = f.svc.Create(ctx, f.actor, later)
	require.NoError(t, err)

	expired, err := f.svc.ExpireDue(ctx, date("2025-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.svc.Get(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeaseExpired, got.Status)
	assert.Equal(t, model.UnitVacant, testutil.Unit(t, f.db, f.u101.ID).Status)
	assert.Equal(t, model.UnitOccupied, testutil.Unit(t, f.db, f.u102.ID).Status)
	assert.Equal(t, events.LeaseExpired, f.events.got[len(f.events.got)-1].Type)

	expired, err = f.svc.ExpireDue(ctx, date("2025-01-15"))
	require.NoError(t, err)
	assert.Zero(t, expired)
}
