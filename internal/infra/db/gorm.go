package db

import (
	"fmt"

	"marketplace/internal/config"
	"marketplace/internal/telemetry"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// database/sql 層は otelsql でトレースする。
func Connect(cfg config.Config) (*gorm.DB, error) {
	sqlDB, err := telemetry.OpenDB("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)

	gcfg := &gorm.Config{}
	if cfg.GoEnv != "dev" {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gdb, nil
}
