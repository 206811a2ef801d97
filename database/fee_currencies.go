package database

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*商户允许用于代付手续费的币种白名单，提现构建时校验 fee_currency 必须在表里*/
type FeeCurrencies struct {
	GUID          uuid.UUID      `gorm:"primaryKey" json:"guid"`
	TokenAddress  common.Address `gorm:"serializer:bytes;column:token_address" json:"token_address"`
	Symbol        string         `json:"symbol"`
	Decimals      uint8          `json:"decimals"`
	Enabled       bool           `json:"enabled"`
	Timestamp     uint64         `json:"timestamp"`
}

type FeeCurrenciesView interface {
	FeeCurrencyExist(requestId string, address common.Address) (bool, error)
	QueryFeeCurrencies(requestId string) ([]*FeeCurrencies, error)
}

type FeeCurrenciesDB interface {
	FeeCurrenciesView

	StoreFeeCurrencies(requestId string, currencies []FeeCurrencies) error
	SetFeeCurrencyEnabled(requestId string, address common.Address, enabled bool) error
}

type feeCurrenciesDB struct {
	gorm *gorm.DB
}

func NewFeeCurrenciesDB(db *gorm.DB) FeeCurrenciesDB {
	return &feeCurrenciesDB{gorm: db}
}

func (db *feeCurrenciesDB) StoreFeeCurrencies(requestId string, currencies []FeeCurrencies) error {
	if len(currencies) == 0 {
		return nil
	}
	return db.gorm.Table("fee_currencies_" + requestId).CreateInBatches(&currencies, len(currencies)).Error
}

func (db *feeCurrenciesDB) FeeCurrencyExist(requestId string, address common.Address) (bool, error) {
	var currency FeeCurrencies
	result := db.gorm.Table("fee_currencies_"+requestId).
		Where("token_address = ?", address.Bytes()).
		Where("enabled = ?", true).
		Take(&currency)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, result.Error
	}
	return true, nil
}

func (db *feeCurrenciesDB) QueryFeeCurrencies(requestId string) ([]*FeeCurrencies, error) {
	var currencies []*FeeCurrencies
	result := db.gorm.Table("fee_currencies_" + requestId).Find(&currencies)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return currencies, nil
}

func (db *feeCurrenciesDB) SetFeeCurrencyEnabled(requestId string, address common.Address, enabled bool) error {
	result := db.gorm.Table("fee_currencies_"+requestId).
		Where("token_address = ?", address.Bytes()).
		Update("enabled", enabled)
	return result.Error
}
