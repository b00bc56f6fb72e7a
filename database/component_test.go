package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/authgate/component"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/migrations"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func startComponent(t *testing.T, cfg Config, models ...interface{}) *Component {
	t.Helper()
	comp := NewComponent(cfg, logger.NewNop()).WithAutoMigrate(models...)
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { comp.Stop(context.Background()) })
	return comp
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := NewComponent(Config{DSN: ":memory:"}, logger.NewNop())
	ctx := context.Background()

	if comp.DB() != nil {
		t.Error("DB() should be nil before Start")
	}
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before Start, got %s", h.Status)
	}

	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after Start, got %+v", h)
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if comp.DB() != nil {
		t.Error("DB() should be nil after Stop")
	}
	if err := comp.Stop(ctx); err != nil {
		t.Errorf("second Stop() should be a no-op, got %v", err)
	}
}

func TestComponent_AutoMigrate(t *testing.T) {
	comp := startComponent(t, Config{DSN: ":memory:"}, &widget{})
	if !comp.DB().GormDB.Migrator().HasTable(&widget{}) {
		t.Error("widget table should have been migrated")
	}
}

func TestComponent_MigrateNoneSkipsModels(t *testing.T) {
	comp := startComponent(t, Config{DSN: ":memory:", Migrate: MigrateNone}, &widget{})
	if comp.DB().GormDB.Migrator().HasTable(&widget{}) {
		t.Error("widget table should not exist with migrate=none")
	}
}

func TestComponent_MigrateFiles(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "authgate.db")
	comp := NewComponent(Config{DSN: dsn, Migrate: MigrateFiles}, logger.NewNop()).
		WithMigrations(migrations.FS, ".")
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer comp.Stop(context.Background())

	m := comp.DB().GormDB.Migrator()
	for _, table := range []string{"users", "access_tokens", "refresh_tokens"} {
		if !m.HasTable(table) {
			t.Errorf("expected table %s after file migrations", table)
		}
	}
}

func TestComponent_MigrateFilesWithoutSource(t *testing.T) {
	comp := NewComponent(Config{DSN: ":memory:", Migrate: MigrateFiles}, logger.NewNop())
	if err := comp.Start(context.Background()); err == nil {
		comp.Stop(context.Background())
		t.Fatal("expected error when no migrations are registered")
	}
}

func TestDB_DuplicateAndNotFound(t *testing.T) {
	comp := startComponent(t, Config{DSN: ":memory:"}, &widget{})
	db := comp.DB().WithContext(context.Background())

	if err := db.Create(&widget{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err := db.Create(&widget{Name: "a"}).Error
	if !IsDuplicateError(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if appErr := FromDatabase(err, "create", "widget"); appErr.HTTPStatus != 409 {
		t.Errorf("expected 409 for duplicate, got %d", appErr.HTTPStatus)
	}

	var w widget
	err = db.Where("name = ?", "missing").First(&w).Error
	if !IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if appErr := FromDatabase(err, "find", "widget"); appErr.HTTPStatus != 404 {
		t.Errorf("expected 404 for not found, got %d", appErr.HTTPStatus)
	}
}

func TestFromDatabase_StorageFailure(t *testing.T) {
	if FromDatabase(nil, "x", "y") != nil {
		t.Error("nil error should map to nil")
	}
	appErr := FromDatabase(errors.New("disk I/O error"), "persist", "token")
	if appErr.HTTPStatus != 503 || !appErr.Retryable {
		t.Errorf("expected retryable 503, got %+v", appErr)
	}
}

func TestDB_WithTransactionRollback(t *testing.T) {
	comp := startComponent(t, Config{DSN: ":memory:"}, &widget{})
	ctx := context.Background()

	err := comp.DB().WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "rolled-back"}).Error; err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected transaction error")
	}

	var count int64
	comp.DB().WithContext(ctx).Model(&widget{}).Count(&count)
	if count != 0 {
		t.Errorf("expected rollback, found %d rows", count)
	}
}
