package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordThroughOutboxPayload(t *testing.T) {
	db := testutil.DB(t)
	r := NewRecorder(db)
	ctx := context.Background()

	entry, err := NewEntry("Lease", 12, model.AuditCreate, 4, map[string]interface{}{"status": "ACTIVE"})
	require.NoError(t, err)

	payload, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, r.HandleOutbox(ctx, payload))

	var rows []model.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(12), rows[0].EntityID)
	assert.Equal(t, "Lease", rows[0].EntityType)
	assert.Equal(t, model.AuditCreate, rows[0].Action)
	assert.Equal(t, uint(4), rows[0].UserID)
	assert.JSONEq(t, `{"status":"ACTIVE"}`, string(rows[0].Changes))
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	r := NewRecorder(testutil.DB(t))
	assert.Error(t, r.Record(context.Background(), Entry{EntityID: 1}))
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := testutil.DB(t)
	r := NewRecorder(db)
	ctx := context.Background()

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, r.Record(ctx, Entry{EntityID: 1, EntityType: "Lease", Action: model.AuditUpdate, UserID: i}))
	}
	require.NoError(t, r.Record(ctx, Entry{EntityID: 9, EntityType: "Unit", Action: model.AuditUpdate, UserID: 1}))

	logs, total, err := r.List(ctx, Filter{EntityType: "Lease", EntityID: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 2)
	assert.Equal(t, uint(3), logs[0].UserID)

	logs, _, err = r.List(ctx, Filter{EntityType: "Lease", EntityID: 1, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint(1), logs[0].UserID)
}
