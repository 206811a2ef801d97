package database

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"celo-wallet-service/database/constant"
)

/*内部交易：归集、热转冷、冷转热*/
type Internals struct {
	GUID      uuid.UUID         `gorm:"primaryKey" json:"guid"`
	Timestamp uint64            `json:"timestamp"`
	Status    constant.TxStatus `json:"status" gorm:"column:status"`

	BlockHash   common.Hash              `gorm:"column:block_hash;serializer:bytes" json:"block_hash"`
	BlockNumber *big.Int                 `gorm:"serializer:u256;column:block_number" json:"block_number"`
	TxHash      common.Hash              `gorm:"column:hash;serializer:bytes" json:"hash"`
	TxType      constant.TransactionType `gorm:"column:tx_type" json:"tx_type"`

	FromAddress common.Address `gorm:"serializer:bytes;column:from_address" json:"from_address"`
	ToAddress   common.Address `gorm:"serializer:bytes;column:to_address" json:"to_address"`
	Amount      *big.Int       `gorm:"serializer:u256;column:amount" json:"amount"`

	GasLimit             uint64         `json:"gas_limit"`
	MaxFeePerGas         string         `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas string         `json:"max_priority_fee_per_gas"`
	FeeCurrency          common.Address `gorm:"serializer:bytes;column:fee_currency" json:"fee_currency"`

	TokenType    constant.TokenType `json:"token_type" gorm:"column:token_type"`
	TokenAddress common.Address     `json:"token_address" gorm:"serializer:bytes;column:token_address"`

	TxUnsignHex string `json:"tx_unsign_hex" gorm:"column:tx_unsign_hex"`
	TxSignHex   string `json:"tx_sign_hex" gorm:"column:tx_sign_hex"`
}

type InternalsView interface {
	QueryInternalByTxHash(requestId string, txHash common.Hash) (*Internals, error)
	UnSendInternalsList(requestId string) ([]*Internals, error)
	QueryNotifyInternals(requestId string) ([]*Internals, error)
}

type InternalsDB interface {
	InternalsView

	StoreInternal(requestId string, internal *Internals) error
	UpdateInternalListById(requestId string, internalsList []*Internals) error
	UpdateInternalStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus, blockNumber *big.Int) error
	HandleFallBackInternals(requestId string, startBlock, endBlock *big.Int) error
}

type internalsDB struct {
	gorm *gorm.DB
}

func NewInternalsDB(db *gorm.DB) InternalsDB {
	return &internalsDB{gorm: db}
}

func (db *internalsDB) StoreInternal(requestId string, internal *Internals) error {
	return db.gorm.Table("internals_" + requestId).Create(internal).Error
}

func (db *internalsDB) QueryInternalByTxHash(requestId string, txHash common.Hash) (*Internals, error) {
	var internal Internals
	result := db.gorm.Table("internals_"+requestId).Where("hash = ?", txHash.Bytes()).Take(&internal)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &internal, nil
}

/*已签名未广播的内部交易*/
func (db *internalsDB) UnSendInternalsList(requestId string) ([]*Internals, error) {
	var internals []*Internals
	result := db.gorm.Table("internals_"+requestId).
		Where("status = ?", constant.TxStatusSigned).
		Find(&internals)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return internals, nil
}

/*已确认待通知的内部交易*/
func (db *internalsDB) QueryNotifyInternals(requestId string) ([]*Internals, error) {
	var internals []*Internals
	result := db.gorm.Table("internals_"+requestId).
		Where("status = ?", constant.TxStatusConfirmed).
		Find(&internals)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return internals, nil
}

func (db *internalsDB) UpdateInternalListById(requestId string, internalsList []*Internals) error {
	for _, internal := range internalsList {
		if err := db.gorm.Table("internals_" + requestId).Save(internal).Error; err != nil {
			return err
		}
	}
	return nil
}

func (db *internalsDB) UpdateInternalStatusByTxHash(requestId string, txHash common.Hash, status constant.TxStatus, blockNumber *big.Int) error {
	updates := map[string]interface{}{"status": status}
	if blockNumber != nil {
		updates["block_number"] = blockNumber.String()
	}
	result := db.gorm.Table("internals_"+requestId).Where("hash = ?", txHash.Bytes()).Updates(updates)
	return result.Error
}

func (db *internalsDB) HandleFallBackInternals(requestId string, startBlock, endBlock *big.Int) error {
	result := db.gorm.Table("internals_"+requestId).
		Where("block_number >= ? and block_number <= ?", startBlock.Uint64(), endBlock.Uint64()).
		Where("status = ?", constant.TxStatusConfirmed).
		Update("status", constant.TxStatusFallback)
	return result.Error
}
