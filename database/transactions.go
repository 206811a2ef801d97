package database

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"celo-wallet-service/database/constant"
)

/*链上扫到的所有交易流水，充值、提现、归集统一落这张表*/
type Transactions struct {
	GUID         uuid.UUID                `gorm:"primaryKey" json:"guid"`
	BlockHash    common.Hash              `gorm:"column:block_hash;serializer:bytes" json:"block_hash"`
	BlockNumber  *big.Int                 `gorm:"serializer:u256;column:block_number" json:"block_number"`
	Hash         common.Hash              `gorm:"column:hash;serializer:bytes" json:"hash"`
	FromAddress  common.Address           `gorm:"serializer:bytes;column:from_address" json:"from_address"`
	ToAddress    common.Address           `gorm:"serializer:bytes;column:to_address" json:"to_address"`
	TokenAddress common.Address           `gorm:"serializer:bytes;column:token_address" json:"token_address"`
	FeeCurrency  common.Address           `gorm:"serializer:bytes;column:fee_currency" json:"fee_currency"`
	Fee          *big.Int                 `gorm:"serializer:u256;column:fee" json:"fee"`
	Amount       *big.Int                 `gorm:"serializer:u256;column:amount" json:"amount"`
	Status       constant.TxStatus        `json:"status"`
	TxType       constant.TransactionType `gorm:"column:tx_type" json:"tx_type"`
	Timestamp    uint64                   `json:"timestamp"`
}

type TransactionsView interface {
	QueryTransactionByTxHash(requestId string, txHash common.Hash) (*Transactions, error)
	QueryFallBackTransactions(requestId string, startBlock, endBlock *big.Int) ([]*Transactions, error)
}

type TransactionsDB interface {
	TransactionsView

	StoreTransactions(requestId string, transactions []*Transactions) error
	UpdateTransactionsStatus(requestId string, blockNumber *big.Int) error
	UpdateTransactionStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus) error
	HandleFallBackTransactions(requestId string, startBlock, endBlock *big.Int) error
}

type transactionsDB struct {
	gorm *gorm.DB
}

func NewTransactionsDB(db *gorm.DB) TransactionsDB {
	return &transactionsDB{gorm: db}
}

func (db *transactionsDB) StoreTransactions(requestId string, transactions []*Transactions) error {
	if len(transactions) == 0 {
		return nil
	}
	return db.gorm.Table("transactions_" + requestId).CreateInBatches(transactions, len(transactions)).Error
}

func (db *transactionsDB) QueryTransactionByTxHash(requestId string, txHash common.Hash) (*Transactions, error) {
	var transaction Transactions
	result := db.gorm.Table("transactions_"+requestId).Where("hash = ?", txHash.Bytes()).Take(&transaction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &transaction, nil
}

func (db *transactionsDB) QueryFallBackTransactions(requestId string, startBlock, endBlock *big.Int) ([]*Transactions, error) {
	var transactions []*Transactions
	result := db.gorm.Table("transactions_"+requestId).
		Where("block_number >= ? and block_number <= ?", startBlock.Uint64(), endBlock.Uint64()).
		Find(&transactions)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return transactions, nil
}

/*区块确认位达到后把整个区块内的交易置为已确认*/
func (db *transactionsDB) UpdateTransactionsStatus(requestId string, blockNumber *big.Int) error {
	result := db.gorm.Table("transactions_"+requestId).
		Where("block_number = ?", blockNumber.Uint64()).
		Where("status = ?", constant.TxStatusBroadcasted).
		Update("status", constant.TxStatusConfirmed)
	return result.Error
}

func (db *transactionsDB) UpdateTransactionStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus) error {
	result := db.gorm.Table("transactions_"+requestId).
		Where("hash = ?", txHash.Bytes()).
		Update("status", status)
	return result.Error
}

func (db *transactionsDB) HandleFallBackTransactions(requestId string, startBlock, endBlock *big.Int) error {
	result := db.gorm.Table("transactions_"+requestId).
		Where("block_number >= ? and block_number <= ?", startBlock.Uint64(), endBlock.Uint64()).
		Update("status", constant.TxStatusFallback)
	return result.Error
}
