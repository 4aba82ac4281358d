package model

// All lists every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Property{},
		&Unit{},
		&Tenant{},
		&User{},
		&Lease{},
		&LeaseUnit{},
		&AuditLog{},
		&Notification{},
		&OutboxMessage{},
	}
}
