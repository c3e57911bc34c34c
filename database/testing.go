package database

import (
	"context"
	"os"
	"strconv"

	"evm-staking-indexer/config"

	"gorm.io/gorm"
)

const (
	MysqlTestUser     string = "indexeruser"
	MysqlTestPassword string = "indexeruser"
	MysqlTestHost     string = "localhost"
	MysqlTestPort     int    = 3307
	MysqlTestDatabase string = "staking_indexer_test"

	// TestDBEnv enables tests that need a running database.
	TestDBEnv = "TEST_DB"
)

// TestDBConfig returns the connection settings of the local test database,
// overridable through the usual DB_* variables.
func TestDBConfig() *config.DBConfig {
	cfg := &config.DBConfig{
		Driver:   config.DriverMysql,
		Host:     MysqlTestHost,
		Port:     MysqlTestPort,
		Database: MysqlTestDatabase,
		Username: MysqlTestUser,
		Password: MysqlTestPassword,
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		cfg.Port = v
	}
	if v := os.Getenv("DB_DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Password = v
	}

	return cfg
}

func ConnectAndInitializeTestDB(ctx context.Context, cfg *config.DBConfig, dropTables bool) (*gorm.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	if err := initialize(ctx, db, dropTables); err != nil {
		return nil, err
	}

	return db, nil
}
