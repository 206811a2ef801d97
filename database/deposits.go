package database

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"celo-wallet-service/database/constant"
)

type Deposits struct {
	GUID      uuid.UUID         `gorm:"primaryKey;type:varchar(36)" json:"guid"`
	Timestamp uint64            `gorm:"not null;check:timestamp > 0" json:"timestamp"`
	Status    constant.TxStatus `gorm:"type:varchar(16);not null" json:"status"`
	Confirms  uint8             `gorm:"not null;default:0" json:"confirms"`

	BlockHash   common.Hash              `gorm:"type:varchar;not null;serializer:bytes" json:"block_hash"`
	BlockNumber *big.Int                 `gorm:"not null;check:block_number > 0;serializer:u256" json:"block_number"`
	TxHash      common.Hash              `gorm:"column:hash;type:varchar;not null;serializer:bytes" json:"hash"`
	TxType      constant.TransactionType `gorm:"type:varchar;not null" json:"tx_type"`

	FromAddress common.Address `gorm:"type:varchar;not null;serializer:bytes" json:"from_address"`
	ToAddress   common.Address `gorm:"type:varchar;not null;serializer:bytes" json:"to_address"`
	Amount      *big.Int       `gorm:"not null;serializer:u256" json:"amount"`

	GasLimit             uint64         `gorm:"not null" json:"gas_limit"`
	MaxFeePerGas         string         `gorm:"type:varchar;not null" json:"max_fee_per_gas"`
	MaxPriorityFeePerGas string         `gorm:"type:varchar;not null" json:"max_priority_fee_per_gas"`
	FeeCurrency          common.Address `gorm:"type:varchar;serializer:bytes" json:"fee_currency"`

	TokenType    constant.TokenType `gorm:"type:varchar;not null" json:"token_type"`
	TokenAddress common.Address     `gorm:"type:varchar;not null;serializer:bytes" json:"token_address"`
}

type DepositsView interface {
	QueryDepositByTxHash(requestId string, txHash common.Hash) (*Deposits, error)
	QueryUnConfirmedDeposits(requestId string) ([]*Deposits, error)
	QueryNotifyDeposits(requestId string) ([]*Deposits, error)
}

type DepositsDB interface {
	DepositsView

	StoreDeposits(string, []*Deposits) error
	UpdateDepositsConfirms(requestId string, blockNumber uint64, confirms uint64) error
	UpdateDepositsStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus) error
	HandleFallBackDeposits(requestId string, startBlock, endBlock *big.Int) error
}

type depositsDB struct {
	gorm *gorm.DB
}

func NewDepositsDB(db *gorm.DB) DepositsDB {
	return &depositsDB{gorm: db}
}

func (db *depositsDB) StoreDeposits(requestId string, deposits []*Deposits) error {
	result := db.gorm.Table("deposits_"+requestId).CreateInBatches(&deposits, len(deposits))
	return result.Error
}

func (db *depositsDB) QueryDepositByTxHash(requestId string, txHash common.Hash) (*Deposits, error) {
	var deposit Deposits
	result := db.gorm.Table("deposits_"+requestId).Where("hash = ?", txHash.Bytes()).Take(&deposit)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &deposit, nil
}

func (db *depositsDB) QueryUnConfirmedDeposits(requestId string) ([]*Deposits, error) {
	var deposits []*Deposits
	result := db.gorm.Table("deposits_"+requestId).
		Where("status = ?", constant.TxStatusBroadcasted).
		Find(&deposits)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return deposits, nil
}

/*
随区块推进更新确认位：已到确认深度的充值改为 confirmed。
blockNumber 为当前扫到的最高区块。
*/
func (db *depositsDB) UpdateDepositsConfirms(requestId string, blockNumber uint64, confirms uint64) error {
	var unConfirmedDeposits []*Deposits
	result := db.gorm.Table("deposits_"+requestId).
		Where("block_number <= ? and status = ?", blockNumber, constant.TxStatusBroadcasted).
		Find(&unConfirmedDeposits)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return result.Error
	}
	for _, deposit := range unConfirmedDeposits {
		chainConfirms := blockNumber - deposit.BlockNumber.Uint64()
		deposit.Confirms = uint8(min(chainConfirms, confirms))
		if chainConfirms >= confirms {
			deposit.Status = constant.TxStatusConfirmed
		}
		if err := db.gorm.Table("deposits_" + requestId).Save(deposit).Error; err != nil {
			return err
		}
	}
	return nil
}

/*已确认待通知的充值*/
func (db *depositsDB) QueryNotifyDeposits(requestId string) ([]*Deposits, error) {
	var deposits []*Deposits
	result := db.gorm.Table("deposits_"+requestId).
		Where("status = ?", constant.TxStatusConfirmed).
		Find(&deposits)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return deposits, nil
}

func (db *depositsDB) UpdateDepositsStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus) error {
	result := db.gorm.Table("deposits_"+requestId).
		Where("hash = ?", txHash.Bytes()).
		Update("status", status)
	return result.Error
}

func (db *depositsDB) HandleFallBackDeposits(requestId string, startBlock, endBlock *big.Int) error {
	result := db.gorm.Table("deposits_"+requestId).
		Where("block_number >= ? and block_number <= ?", startBlock.Uint64(), endBlock.Uint64()).
		Update("status", constant.TxStatusFallback)
	return result.Error
}
