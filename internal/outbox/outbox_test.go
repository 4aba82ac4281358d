package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func enqueue(t *testing.T, db *gorm.DB, kind string) model.OutboxMessage {
	t.Helper()
	var msg model.OutboxMessage
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		msg, err = Enqueue(tx, kind, map[string]string{"k": kind})
		return err
	}))
	return msg
}

func reload(t *testing.T, db *gorm.DB, id uint) model.OutboxMessage {
	t.Helper()
	var msg model.OutboxMessage
	require.NoError(t, db.First(&msg, id).Error)
	return msg
}

func TestEnqueueRollsBackWithTransaction(t *testing.T) {
	db := testutil.DB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Enqueue(tx, KindAudit, map[string]int{"a": 1}); err != nil {
			return err
		}
		return errors.New("business write failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeliverMarksOutcome(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	ok := enqueue(t, db, KindAudit)
	bad := enqueue(t, db, KindNotify)
	orphan := enqueue(t, db, "unknown.kind")

	d := NewDispatcher(db)
	var payloads []string
	d.Register(KindAudit, func(_ context.Context, payload []byte) error {
		payloads = append(payloads, string(payload))
		return nil
	})
	d.Register(KindNotify, func(context.Context, []byte) error { return errors.New("db down") })

	delivered := d.Deliver(ctx, []model.OutboxMessage{ok, bad, orphan})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{`{"k":"audit.record"}`}, payloads)

	got := reload(t, db, ok.ID)
	assert.NotNil(t, got.DeliveredAt)
	assert.Equal(t, 1, got.Attempts)

	got = reload(t, db, bad.ID)
	assert.Nil(t, got.DeliveredAt)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "db down", got.LastError)

	got = reload(t, db, orphan.ID)
	assert.Contains(t, got.LastError, "no handler")
}

func TestDeliverRecoversHandlerPanic(t *testing.T) {
	db := testutil.DB(t)
	msg := enqueue(t, db, KindLeaseEvent)

	d := NewDispatcher(db)
	d.Register(KindLeaseEvent, func(context.Context, []byte) error { panic("boom") })

	assert.Zero(t, d.Deliver(context.Background(), []model.OutboxMessage{msg}))
	assert.Contains(t, reload(t, db, msg.ID).LastError, "boom")
}

func TestRelayRetriesUntilDelivered(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	msg := enqueue(t, db, KindNotify)

	failures := 2
	d := NewDispatcher(db)
	d.Register(KindNotify, func(context.Context, []byte) error {
		if failures > 0 {
			failures--
			return errors.New("transient")
		}
		return nil
	})

	r := NewRelay(db, d, RelayConfig{MaxAttempts: 5})
	r.now = func() time.Time { return time.Now().Add(time.Minute) }

	for i := 0; i < 2; i++ {
		delivered, err := r.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, delivered)
	}

	delivered, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 3, reload(t, db, msg.ID).Attempts)

	pending, err := r.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayGivesUpAfterMaxAttempts(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	enqueue(t, db, KindNotify)

	d := NewDispatcher(db)
	d.Register(KindNotify, func(context.Context, []byte) error { return errors.New("permanent") })

	r := NewRelay(db, d, RelayConfig{MaxAttempts: 2})
	r.now = func() time.Time { return time.Now().Add(time.Minute) }

	for i := 0; i < 4; i++ {
		_, err := r.RunOnce(ctx)
		require.NoError(t, err)
	}

	var msg model.OutboxMessage
	require.NoError(t, db.First(&msg).Error)
	assert.Equal(t, 2, msg.Attempts)
}

func TestRelaySkipsFreshMessages(t *testing.T) {
	db := testutil.DB(t)
	enqueue(t, db, KindAudit)

	r := NewRelay(db, NewDispatcher(db), RelayConfig{MinAge: time.Hour})
	pending, err := r.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunStopsOnCancel(t *testing.T) {
	db := testutil.DB(t)
	r := NewRelay(db, NewDispatcher(db), RelayConfig{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
