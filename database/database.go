package database

import (
	"context"
	"fmt"

	"evm-staking-indexer/boff"
	"evm-staking-indexer/config"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	gormMysql "gorm.io/driver/mysql"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const tcp = "tcp"

var (
	// List entities to auto-migrate
	entities = []interface{}{
		State{},
		Receipt{},
		Stake{},
		Delegation{},
		Undelegation{},
		CoinbaseMint{},
		JailEvent{},
		Punish{},
		ValidatorUpdate{},
		Proposer{},
		Epoch{},
		Validator{},
	}
	DBTransactionBatchesSize = 1000
)

func ConnectAndInitialize(ctx context.Context, cfg *config.DBConfig) (*gorm.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("ConnectAndInitialize: Connect: %w", err)
	}

	if err := initialize(ctx, db, cfg.DropTableAtStart); err != nil {
		return nil, err
	}

	return db, nil
}

func initialize(ctx context.Context, db *gorm.DB, dropTables bool) error {
	db = db.WithContext(ctx)

	if dropTables {
		if err := db.Migrator().DropTable(entities...); err != nil {
			return errors.Wrap(err, "ConnectAndInitialize: DropTable")
		}
	}

	// Initialize - auto migrate
	if err := db.AutoMigrate(entities...); err != nil {
		return errors.Wrap(err, "ConnectAndInitialize: AutoMigrate")
	}

	return nil
}

func Connect(cfg *config.DBConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormConfig := gorm.Config{
		Logger:          gormlogger.Default.LogMode(getGormLogLevel(cfg)),
		CreateBatchSize: DBTransactionBatchesSize,
	}

	db, err := gorm.Open(dialector, &gormConfig)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "Connect: DB")
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return db, nil
}

// ConnectWithRetry keeps dialing until the database answers or ctx is done.
// A driver that cannot be configured fails at once.
func ConnectWithRetry(ctx context.Context, cfg *config.DBConfig) (*gorm.DB, error) {
	if _, err := Dialector(cfg); err != nil {
		return nil, err
	}

	return boff.Retry(ctx, func() (*gorm.DB, error) {
		return Connect(cfg)
	}, "Connect")
}

// Dialector picks the gorm driver for the configured database.
func Dialector(cfg *config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMysql, "":
		dbConfig := mysql.Config{
			User:                 cfg.Username,
			Passwd:               cfg.Password,
			Net:                  tcp,
			Addr:                 fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			DBName:               cfg.Database,
			AllowNativePasswords: true,
			ParseTime:            true,
		}
		return gormMysql.Open(dbConfig.FormatDSN()), nil

	case config.DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database,
		)
		return gormPostgres.Open(dsn), nil

	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func getGormLogLevel(cfg *config.DBConfig) gormlogger.LogLevel {
	if cfg.LogQueries {
		return gormlogger.Info
	}

	return gormlogger.Silent
}
