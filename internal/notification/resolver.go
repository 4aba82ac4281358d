package notification

import (
	"context"

	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// RecipientResolver decides who receives a lease notification. It is
// queried fresh for every event.
type RecipientResolver interface {
	Recipients(ctx context.Context, db *gorm.DB, ev Event) ([]uint, error)
}

// AllUsers broadcasts to every user, deactivated accounts included
type AllUsers struct{}

func (AllUsers) Recipients(ctx context.Context, db *gorm.DB, _ Event) ([]uint, error) {
	var ids []uint
	err := db.WithContext(ctx).
		Model(&model.User{}).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, errors.Wrap(err, "load recipients")
}

// ByRole limits recipients to active users holding one of Roles
type ByRole struct {
	Roles []string
}

func (r ByRole) Recipients(ctx context.Context, db *gorm.DB, _ Event) ([]uint, error) {
	var ids []uint
	err := db.WithContext(ctx).
		Model(&model.User{}).
		Where("active = ? AND role IN ?", true, r.Roles).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, errors.Wrap(err, "load recipients by role")
}

// ResolverFor picks ByRole when roles are configured and AllUsers otherwise
func ResolverFor(roles []string) RecipientResolver {
	if len(roles) == 0 {
		return AllUsers{}
	}
	return ByRole{Roles: roles}
}
