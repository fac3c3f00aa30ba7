package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/grant/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/grant/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.Exec(`CREATE TABLE grants (
		id BIGINT PRIMARY KEY,
		coupon_code TEXT NOT NULL,
		discount_percentage REAL NOT NULL DEFAULT 0,
		max_uses INTEGER NOT NULL,
		used_count INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func usedCount(t *testing.T, db *gorm.DB, id snowflake.ID) int {
	t.Helper()
	var count int
	if err := db.Raw(`SELECT used_count FROM grants WHERE id = ?`, id).Scan(&count).Error; err != nil {
		t.Fatalf("read grant: %v", err)
	}
	return count
}

func TestConsumeStopsAtMaxUses(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := service.NewService(service.Params{
		DB: db, Log: zap.NewNop(), Repo: repository.Provide(), Clock: clock.NewFakeClock(now),
	})

	grantID := snowflake.ID(41)
	err := db.Exec(
		`INSERT INTO grants (id, coupon_code, max_uses, used_count, active, created_at, updated_at)
		 VALUES (?, 'SCHOLAR50', 2, 0, TRUE, ?, ?)`,
		grantID, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert grant: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Consume(ctx, grantID, "SCHOLAR50"); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
	if got := usedCount(t, db, grantID); got != 2 {
		t.Fatalf("used_count = %d", got)
	}

	// Exhausted grants log the overflow but never fail the payment.
	if err := svc.Consume(ctx, grantID, "SCHOLAR50"); err != nil {
		t.Fatalf("consume past cap: %v", err)
	}
	if got := usedCount(t, db, grantID); got != 2 {
		t.Fatalf("used_count after cap = %d", got)
	}
}

func TestConsumeIgnoresWrongCouponCode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := service.NewService(service.Params{
		DB: db, Log: zap.NewNop(), Repo: repository.Provide(), Clock: clock.NewFakeClock(now),
	})

	grantID := snowflake.ID(42)
	err := db.Exec(
		`INSERT INTO grants (id, coupon_code, max_uses, used_count, active, created_at, updated_at)
		 VALUES (?, 'SCHOLAR50', 5, 0, TRUE, ?, ?)`,
		grantID, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert grant: %v", err)
	}

	if err := svc.Consume(ctx, grantID, "OTHERCODE"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got := usedCount(t, db, grantID); got != 0 {
		t.Fatalf("used_count = %d", got)
	}
}
