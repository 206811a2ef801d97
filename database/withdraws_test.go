package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"celo-wallet-service/database/constant"
)

func TestNewWithdrawsDB(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	withdraws := NewWithdrawsDB(gormDB)
	if withdraws == nil {
		t.Fatal("NewWithdrawsDB returned nil")
	}
}

func TestUnSendWithdrawsList(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	feeCurrency := common.HexToAddress("0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1")

	mock.ExpectQuery(`SELECT \* FROM "withdraws_biz1" WHERE status = \$1`).
		WithArgs(string(constant.TxStatusSigned)).
		WillReturnRows(sqlmock.NewRows([]string{"guid", "status", "fee_currency", "tx_sign_hex"}).
			AddRow(uuid.New(), string(constant.TxStatusSigned), feeCurrency.Bytes(), "0x7b01"))

	db := NewWithdrawsDB(gormDB)
	list, err := db.UnSendWithdrawsList("biz1")

	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, constant.TxStatusSigned, list[0].Status)
	assert.Equal(t, feeCurrency, list[0].FeeCurrency)
	assert.Equal(t, "0x7b01", list[0].TxSignHex)
}

func TestQueryWithdrawByTxHashNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	txHash := common.HexToHash("0x11")

	mock.ExpectQuery(`SELECT \* FROM "withdraws_biz1" WHERE hash = \$1`).
		WithArgs(txHash.Bytes(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"guid"}))

	db := NewWithdrawsDB(gormDB)
	withdraw, err := db.QueryWithdrawByTxHash("biz1", txHash)

	assert.NoError(t, err)
	assert.Nil(t, withdraw)
}
