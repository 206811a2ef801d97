package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFeeCurrencyExist(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	cusd := common.HexToAddress("0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1")

	mock.ExpectQuery(`SELECT \* FROM "fee_currencies_biz1" WHERE token_address = \$1 AND enabled = \$2`).
		WithArgs(cusd.Bytes(), true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"guid", "token_address", "symbol", "decimals", "enabled", "timestamp"}).
			AddRow(uuid.New(), cusd.Bytes(), "cUSD", 18, true, 1724660000))

	db := NewFeeCurrenciesDB(gormDB)
	exist, err := db.FeeCurrencyExist("biz1", cusd)

	assert.NoError(t, err)
	assert.True(t, exist)
}

func TestFeeCurrencyExistNotWhitelisted(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	unknown := common.HexToAddress("0x1111111111111111111111111111111111111111")

	mock.ExpectQuery(`SELECT \* FROM "fee_currencies_biz1"`).
		WithArgs(unknown.Bytes(), true, 1).
		WillReturnRows(sqlmock.NewRows([]string{"guid"}))

	db := NewFeeCurrenciesDB(gormDB)
	exist, err := db.FeeCurrencyExist("biz1", unknown)

	assert.NoError(t, err)
	assert.False(t, exist)
}
