package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dispenser-tracker-backend/config"
	"dispenser-tracker-backend/internal/model"
)

// Models lists every table managed by AutoMigrate.
var Models = []interface{}{
	&model.MachineTemplate{},
	&model.MachineInstance{},
	&model.Client{},
	&model.Schedule{},
	&model.ScheduleTimeRange{},
	&model.ScheduleInterval{},
	&model.RefillLog{},
	&model.TechnicianAssignment{},
	&model.PushSubscription{},
}

// Open connects to the configured database without migrating it.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// Init opens the database, runs migrations and, on Postgres, applies the
// optional check constraints.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("running database migrations", zap.String("driver", cfg.Driver))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableConstraints && cfg.Driver == "postgres" {
		log.Info("applying check constraints")
		if err := applyConstraintDDL(db); err != nil {
			log.Warn("failed to apply some constraint DDL, continuing without them", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

func applyConstraintDDL(db *gorm.DB) error {
	ddls := []string{
		// level never leaves [0, capacity]
		"ALTER TABLE machine_instances DROP CONSTRAINT IF EXISTS machine_instances_level_in_range;",
		"ALTER TABLE machine_instances ADD CONSTRAINT machine_instances_level_in_range " +
			"CHECK (current_level_ml >= 0 AND (refill_capacity_ml <= 0 OR current_level_ml <= refill_capacity_ml));",

		"ALTER TABLE machine_instances DROP CONSTRAINT IF EXISTS machine_instances_status_valid;",
		"ALTER TABLE machine_instances ADD CONSTRAINT machine_instances_status_valid " +
			"CHECK (status IN ('installed', 'assigned', 'discontinued'));",

		"ALTER TABLE schedules DROP CONSTRAINT IF EXISTS schedules_type_valid;",
		"ALTER TABLE schedules ADD CONSTRAINT schedules_type_valid CHECK (type IN ('fixed', 'custom'));",

		// newest-first refill history per dispenser
		"CREATE INDEX IF NOT EXISTS idx_refill_logs_dispenser_timestamp ON refill_logs (dispenser_id, timestamp DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
