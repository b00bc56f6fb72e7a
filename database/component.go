package database

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/kbukum/authgate/component"
	"github.com/kbukum/authgate/database/migration"
	"github.com/kbukum/authgate/logger"
)

// Component wraps DB and implements component.Component.
type Component struct {
	cfg    Config
	log    *logger.Logger
	models []interface{}

	migrationsFS  fs.FS
	migrationsDir string

	mu sync.RWMutex
	db *DB
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// WithAutoMigrate registers models for GORM auto-migration ("auto" mode).
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// WithMigrations registers the SQL migrations applied in "files" mode.
func (c *Component) WithMigrations(fsys fs.FS, dir string) *Component {
	c.migrationsFS = fsys
	c.migrationsDir = dir
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Component) Name() string { return "database" }

// Start connects to the database and prepares the schema.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}

	if err := c.migrate(db); err != nil {
		_ = db.Close()
		return err
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

func (c *Component) migrate(db *DB) error {
	switch c.cfg.Migrate {
	case MigrateAuto:
		if len(c.models) == 0 {
			return nil
		}
		if err := db.AutoMigrate(c.models...); err != nil {
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	case MigrateFiles:
		if c.migrationsFS == nil {
			return fmt.Errorf("database migrate=files but no migrations registered")
		}
		if err := migration.MigrateUp(db.GormDB, c.migrationsFS, c.migrationsDir, migration.SQLiteDriver); err != nil {
			return fmt.Errorf("database migrate: %w", err)
		}
		c.log.Info("SQL migrations applied")
	}
	return nil
}

// Stop closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()

	if db == nil {
		return nil
	}
	return db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	db := c.DB()
	if db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not initialized"}
	}

	stats, err := db.CheckHealth(ctx)
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("open=%d in_use=%d", stats.OpenConns, stats.InUseConns),
	}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "SQLite",
		Type:    "database",
		Details: fmt.Sprintf("pool=%d/%d migrate=%s", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns, c.cfg.Migrate),
	}
}
