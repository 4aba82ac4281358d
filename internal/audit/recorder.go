package audit

import (
	"context"
	"encoding/json"

	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry describes one mutation to record
type Entry struct {
	EntityID   uint              `json:"entity_id"`
	EntityType string            `json:"entity_type"`
	Action     model.AuditAction `json:"action"`
	UserID     uint              `json:"user_id"`
	Changes    json.RawMessage   `json:"changes,omitempty"`
}

// NewEntry builds an entry, encoding changes as JSON
func NewEntry(entityType string, entityID uint, action model.AuditAction, userID uint, changes interface{}) (Entry, error) {
	e := Entry{EntityID: entityID, EntityType: entityType, Action: action, UserID: userID}
	if changes != nil {
		body, err := json.Marshal(changes)
		if err != nil {
			return e, errors.Wrap(err, "marshal audit changes")
		}
		e.Changes = body
	}
	return e, nil
}

// Recorder appends audit log rows. Rows are never updated or deleted.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one row
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if e.EntityType == "" || e.Action == "" {
		return errors.New("audit entry needs an entity type and action")
	}

	row := model.AuditLog{
		EntityID:   e.EntityID,
		EntityType: e.EntityType,
		Action:     e.Action,
		UserID:     e.UserID,
		Changes:    datatypes.JSON(e.Changes),
	}
	if len(row.Changes) == 0 {
		row.Changes = datatypes.JSON("{}")
	}

	return errors.Wrap(r.db.WithContext(ctx).Create(&row).Error, "insert audit log")
}

// HandleOutbox records an entry delivered through the outbox
func (r *Recorder) HandleOutbox(ctx context.Context, payload []byte) error {
	var e Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return errors.Wrap(err, "decode audit entry")
	}
	return r.Record(ctx, e)
}

// Filter narrows List
type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Page       int
	Limit      int
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.EntityType != "" {
		db = db.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		db = db.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	return db
}

// List returns matching rows newest first with the total match count
func (r *Recorder) List(ctx context.Context, f Filter) ([]model.AuditLog, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.AuditLog{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count audit logs")
	}

	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Scopes(f.scope).
		Order("id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list audit logs")
	}
	return logs, total, nil
}
