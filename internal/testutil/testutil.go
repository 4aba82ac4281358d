// Package testutil opens migrated in-memory stores and seeds fixtures for
// package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB opens a private shared-cache in-memory SQLite database migrated with
// every model. A single connection keeps the memory database alive and
// serialises writers the way a row lock would.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

func SeedProperty(tb testing.TB, db *gorm.DB, name string) *model.Property {
	tb.Helper()
	p := &model.Property{Name: name, City: "Makati", PropertyType: "COMMERCIAL"}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed property: %v", err)
	}
	return p
}

func SeedUnit(tb testing.TB, db *gorm.DB, propertyID uint, number string, rent float64) *model.Unit {
	tb.Helper()
	u := &model.Unit{PropertyID: propertyID, UnitNumber: number, TotalArea: 50, TotalRent: rent, Status: model.UnitVacant}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed unit: %v", err)
	}
	return u
}

func SeedTenant(tb testing.TB, db *gorm.DB, name string) *model.Tenant {
	tb.Helper()
	t := &model.Tenant{Name: name, Email: "contact@example.com"}
	if err := db.Create(t).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return t
}

func SeedUser(tb testing.TB, db *gorm.DB, email, role string) *model.User {
	tb.Helper()
	u := &model.User{Email: email, Name: email, Role: role, Active: true}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// Unit reloads a unit by id
func Unit(tb testing.TB, db *gorm.DB, id uint) model.Unit {
	tb.Helper()
	var u model.Unit
	if err := db.First(&u, id).Error; err != nil {
		tb.Fatalf("load unit %d: %v", id, err)
	}
	return u
}
