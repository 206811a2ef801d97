package database

import (
	"math/big"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestStoreBlocks(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	block := Blocks{
		Hash:       common.HexToHash("0xabc"),
		ParentHash: common.HexToHash("0xdef"),
		Number:     big.NewInt(100),
		Timestamp:  12345678,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "blocks"`).
		WithArgs(
			block.Hash[:], // bytes 序列化器落库为原始字节
			block.ParentHash[:],
			block.Number.String(), // u256 序列化器落库为十进制字符串
			block.Timestamp,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	blockDB := NewBlocksDB(gormDB)
	err := blockDB.StoreBlocks([]Blocks{block})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestBlocksEmpty(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	mock.ExpectQuery(`SELECT \* FROM "blocks" ORDER BY number desc`).
		WillReturnRows(sqlmock.NewRows([]string{"hash", "parent_hash", "number", "timestamp"}))

	blockDB := NewBlocksDB(gormDB)
	latest, err := blockDB.LatestBlocks()

	assert.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDeleteBlocksFrom(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "blocks" WHERE number >= \$1`).
		WithArgs(uint64(100)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	blockDB := NewBlocksDB(gormDB)
	err := blockDB.DeleteBlocksFrom(big.NewInt(100))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
