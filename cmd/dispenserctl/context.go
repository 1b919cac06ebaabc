package main

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dispenser-tracker-backend/config"
	"dispenser-tracker-backend/internal/db"
	"dispenser-tracker-backend/internal/logging"
)

type commandContext struct {
	configFlag *string

	once   sync.Once
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB
	err    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

// open loads the configuration and connects to the database once. Migrations
// run as part of the connection.
func (c *commandContext) open() (*gorm.DB, *zap.Logger, error) {
	c.once.Do(func() {
		cfg, err := config.Load(c.configPath())
		if err != nil {
			c.err = err
			return
		}
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			c.err = err
			return
		}
		gdb, err := db.Init(&cfg.Database, logger)
		if err != nil {
			c.err = err
			return
		}
		c.config, c.logger, c.db = cfg, logger, gdb
	})
	return c.db, c.logger, c.err
}

func (c *commandContext) close() error {
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
