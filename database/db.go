package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"celo-wallet-service/common/retry"
	"celo-wallet-service/config"
	/*自动注册序列器*/
	_ "celo-wallet-service/database/utils/serializers"
)

/*DB 封装 GORM 连接以及各个表的访问接口*/
type DB struct {
	Gorm          *gorm.DB
	Business      BusinessDB
	Blocks        BlocksDB
	ReorgBlocks   ReorgBlocksDB
	Address       AddressDB
	Balances      BalancesDB
	Deposits      DepositsDB
	Withdraws     WithdrawDB
	Internals     InternalsDB
	Transactions  TransactionsDB
	FeeCurrencies FeeCurrenciesDB
}

/*根据配置创建数据库连接，初始化失败时按指数退避重试*/
func NewDB(ctx context.Context, dbConfig config.DBConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s dbname=%s sslmode=disable", dbConfig.Host, dbConfig.Name)
	if dbConfig.Port != 0 {
		dsn += fmt.Sprintf(" port=%d", dbConfig.Port)
	}
	if dbConfig.User != "" {
		dsn += fmt.Sprintf(" user=%s", dbConfig.User)
	}
	if dbConfig.Password != "" {
		dsn += fmt.Sprintf(" password=%s", dbConfig.Password)
	}

	gormConfig := gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        3_000,
		Logger:                 logger.Default.LogMode(logger.Warn),
	}

	/*重试策略*/
	retryStrategy := &retry.ExponentialStrategy{Min: 1000, Max: 20_000, MaxJitter: 250}
	gormDb, err := retry.Do[*gorm.DB](ctx, 10, retryStrategy, func() (*gorm.DB, error) {
		gormDb, err := gorm.Open(postgres.Open(dsn), &gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return gormDb, nil
	})
	if err != nil {
		return nil, err
	}

	return newDBFromGorm(gormDb), nil
}

func newDBFromGorm(gormDb *gorm.DB) *DB {
	return &DB{
		Gorm:          gormDb,
		Business:      NewBusinessDB(gormDb),
		Blocks:        NewBlocksDB(gormDb),
		ReorgBlocks:   NewReorgBlocksDB(gormDb),
		Address:       NewAddressDB(gormDb),
		Balances:      NewBalancesDB(gormDb),
		Deposits:      NewDepositsDB(gormDb),
		Withdraws:     NewWithdrawsDB(gormDb),
		Internals:     NewInternalsDB(gormDb),
		Transactions:  NewTransactionsDB(gormDb),
		FeeCurrencies: NewFeeCurrenciesDB(gormDb),
	}
}

/*在一个数据库事务中执行 fn，fn 拿到的 DB 绑定在事务连接上*/
func (db *DB) Transaction(fn func(db *DB) error) error {
	return db.Gorm.Transaction(func(tx *gorm.DB) error {
		return fn(newDBFromGorm(tx))
	})
}

/*关闭底层数据库连接*/
func (db *DB) Close() error {
	sql, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sql.Close()
}

/*
依次执行 migrationsFolder 下的所有 SQL 文件，
用于初始化或迁移数据库结构
*/
func (db *DB) ExecuteSQLMigration(migrationsFolder string) error {
	err := filepath.Walk(migrationsFolder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to walk %s", path))
		}
		if info.IsDir() {
			return nil
		}
		fileContent, readErr := os.ReadFile(path)
		if readErr != nil {
			return errors.Wrap(readErr, fmt.Sprintf("failed to read SQL file %s", path))
		}
		execErr := db.Gorm.Exec(string(fileContent)).Error
		if execErr != nil {
			return errors.Wrap(execErr, fmt.Sprintf("failed to execute SQL file %s", path))
		}
		return nil
	})
	return err
}
