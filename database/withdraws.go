package database

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"celo-wallet-service/database/constant"
)

type Withdraws struct {
	// 基础信息
	GUID      uuid.UUID         `gorm:"primaryKey" json:"guid"`
	Timestamp uint64            `json:"timestamp"`
	Status    constant.TxStatus `json:"status" gorm:"column:status"`

	// 区块信息
	BlockHash   common.Hash              `gorm:"column:block_hash;serializer:bytes" json:"block_hash"`
	BlockNumber *big.Int                 `gorm:"serializer:u256;column:block_number" json:"block_number"`
	TxHash      common.Hash              `gorm:"column:hash;serializer:bytes" json:"hash"`
	TxType      constant.TransactionType `gorm:"column:tx_type" json:"tx_type"`

	// 交易基础信息
	FromAddress common.Address `gorm:"serializer:bytes;column:from_address" json:"from_address"`
	ToAddress   common.Address `gorm:"serializer:bytes;column:to_address" json:"to_address"`
	Amount      *big.Int       `gorm:"serializer:u256;column:amount" json:"amount"`

	// Gas 费用
	GasLimit             uint64 `json:"gas_limit"`
	MaxFeePerGas         string `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas string `json:"max_priority_fee_per_gas"`
	// CIP-64 手续费代币，零地址表示用原生 CELO 支付
	FeeCurrency common.Address `gorm:"serializer:bytes;column:fee_currency" json:"fee_currency"`

	// Token 相关信息
	TokenType    constant.TokenType `json:"token_type" gorm:"column:token_type"`
	TokenAddress common.Address     `json:"token_address" gorm:"serializer:bytes;column:token_address"`

	// 未签名编码与已签名编码（十六进制）
	TxUnsignHex string `json:"tx_unsign_hex" gorm:"column:tx_unsign_hex"`
	TxSignHex   string `json:"tx_sign_hex" gorm:"column:tx_sign_hex"`
}

type WithdrawsView interface {
	QueryWithdrawByGuid(requestId string, guid uuid.UUID) (*Withdraws, error)
	QueryWithdrawByTxHash(requestId string, txHash common.Hash) (*Withdraws, error)
	UnSendWithdrawsList(requestId string) ([]*Withdraws, error)
	QueryWithdrawsByStatus(requestId string, status constant.TxStatus) ([]*Withdraws, error)
}

type WithdrawDB interface {
	WithdrawsView

	StoreWithdraw(requestId string, withdraw *Withdraws) error
	UpdateWithdrawListById(requestId string, withdrawsList []*Withdraws) error
	UpdateWithdrawStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus, blockNumber *big.Int) error
	HandleFallBackWithdraw(requestId string, startBlock, endBlock *big.Int) error
}

type withdrawsDB struct {
	gorm *gorm.DB
}

func NewWithdrawsDB(db *gorm.DB) WithdrawDB {
	return &withdrawsDB{gorm: db}
}

func (db *withdrawsDB) StoreWithdraw(requestId string, withdraw *Withdraws) error {
	return db.gorm.Table("withdraws_" + requestId).Create(withdraw).Error
}

func (db *withdrawsDB) QueryWithdrawByGuid(requestId string, guid uuid.UUID) (*Withdraws, error) {
	var withdraw Withdraws
	result := db.gorm.Table("withdraws_"+requestId).Where("guid = ?", guid).Take(&withdraw)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &withdraw, nil
}

func (db *withdrawsDB) QueryWithdrawByTxHash(requestId string, txHash common.Hash) (*Withdraws, error) {
	var withdraw Withdraws
	result := db.gorm.Table("withdraws_"+requestId).Where("hash = ?", txHash.Bytes()).Take(&withdraw)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &withdraw, nil
}

/*已签名未广播的提现列表*/
func (db *withdrawsDB) UnSendWithdrawsList(requestId string) ([]*Withdraws, error) {
	var withdraws []*Withdraws
	result := db.gorm.Table("withdraws_"+requestId).
		Where("status = ?", constant.TxStatusSigned).
		Find(&withdraws)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return withdraws, nil
}

func (db *withdrawsDB) QueryWithdrawsByStatus(requestId string, status constant.TxStatus) ([]*Withdraws, error) {
	var withdraws []*Withdraws
	result := db.gorm.Table("withdraws_"+requestId).Where("status = ?", status).Find(&withdraws)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return withdraws, nil
}

func (db *withdrawsDB) UpdateWithdrawListById(requestId string, withdrawsList []*Withdraws) error {
	for _, withdraw := range withdrawsList {
		if err := db.gorm.Table("withdraws_" + requestId).Save(withdraw).Error; err != nil {
			return err
		}
	}
	return nil
}

func (db *withdrawsDB) UpdateWithdrawStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus, blockNumber *big.Int) error {
	updates := map[string]interface{}{"status": status}
	if blockNumber != nil {
		updates["block_number"] = blockNumber.String()
	}
	result := db.gorm.Table("withdraws_"+requestId).Where("hash = ?", txHash.Bytes()).Updates(updates)
	return result.Error
}

/*回滚区间内的提现改回已广播，等待重新确认*/
func (db *withdrawsDB) HandleFallBackWithdraw(requestId string, startBlock, endBlock *big.Int) error {
	result := db.gorm.Table("withdraws_"+requestId).
		Where("block_number >= ? and block_number <= ?", startBlock.Uint64(), endBlock.Uint64()).
		Where("status = ?", constant.TxStatusConfirmed).
		Update("status", constant.TxStatusFallback)
	return result.Error
}
