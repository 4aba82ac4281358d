package notification

import (
	"context"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Inbox serves one user's notifications
type Inbox struct {
	db *gorm.DB
}

func NewInbox(db *gorm.DB) *Inbox {
	return &Inbox{db: db}
}

// List returns the user's notifications newest first
func (i *Inbox) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if unreadOnly {
			db = db.Where("is_read = ?", false)
		}
		return db
	}

	var total int64
	if err := i.db.WithContext(ctx).Model(&model.Notification{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count notifications")
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var items []model.Notification
	err := i.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	return items, total, errors.Wrap(err, "list notifications")
}

// UnreadCount counts the user's unread notifications
func (i *Inbox) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := i.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, errors.Wrap(err, "count unread notifications")
}

// MarkRead marks one of the user's notifications read
func (i *Inbox) MarkRead(ctx context.Context, userID, id uint) error {
	res := i.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read
func (i *Inbox) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := i.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, errors.Wrap(res.Error, "mark notifications read")
}
