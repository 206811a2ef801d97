package database

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"celo-wallet-service/database/constant"
)

type Balances struct {
	GUID         uuid.UUID            `gorm:"primary_key" json:"guid"`
	Address      common.Address       `gorm:"type:varchar;not null;serializer:bytes" json:"address"`
	TokenAddress common.Address       `gorm:"type:varchar;not null;serializer:bytes" json:"token_address"`
	AddressType  constant.AddressType `gorm:"type:varchar(10);not null;default:'user'" json:"address_type"`
	Balance      *big.Int             `gorm:"type:numeric;not null;default:0;check:balance >= 0;serializer:u256" json:"balance"`
	LockBalance  *big.Int             `gorm:"type:numeric;not null;default:0;serializer:u256" json:"lock_balance"`
	Timestamp    uint64               `gorm:"type:bigint;not null;check:timestamp > 0" json:"timestamp"`
}

type BalancesView interface {
	QueryWalletBalanceByTokenAndAddress(
		requestId string,
		addressType constant.AddressType,
		address,
		tokenAddress common.Address,
	) (*Balances, error)
}

type BalancesDB interface {
	BalancesView

	StoreBalances(string, []*Balances) error
	UpdateOrCreate(requestId string, balances []*TokenBalance) error
}

type balancesDB struct {
	gorm *gorm.DB
}

func NewBalancesDB(db *gorm.DB) BalancesDB {
	return &balancesDB{gorm: db}
}

/*批量余额存库*/
func (db *balancesDB) StoreBalances(requestId string, balances []*Balances) error {
	return db.gorm.Table("balances_"+requestId).CreateInBatches(&balances, len(balances)).Error
}

func (db *balancesDB) QueryWalletBalanceByTokenAndAddress(requestId string, addressType constant.AddressType, address, tokenAddress common.Address) (*Balances, error) {
	var balance Balances
	result := db.gorm.Table("balances_"+requestId).
		Where("address = ? and token_address = ? and address_type = ?", address.Bytes(), tokenAddress.Bytes(), addressType).
		Take(&balance)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &balance, nil
}

/*
按 (address, tokenAddress) 调整余额：
入账增加 balance，出账减少 balance 并增加 lock_balance，
没有记录时插入新行。
*/
func (db *balancesDB) UpdateOrCreate(requestId string, balances []*TokenBalance) error {
	for _, tb := range balances {
		if tb == nil || tb.Amount == nil {
			continue
		}
		var entry Balances
		result := db.gorm.Table("balances_"+requestId).
			Where("address = ? and token_address = ?", tb.Address.Bytes(), tb.TokenAddress.Bytes()).
			Take(&entry)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			entry = Balances{
				GUID:         uuid.New(),
				Address:      tb.Address,
				TokenAddress: tb.TokenAddress,
				AddressType:  tb.AddressType,
				Balance:      big.NewInt(0),
				LockBalance:  big.NewInt(0),
				Timestamp:    tb.Timestamp,
			}
			if err := db.gorm.Table("balances_" + requestId).Create(&entry).Error; err != nil {
				return err
			}
		}
		if tb.Inbound {
			entry.Balance = new(big.Int).Add(entry.Balance, tb.Amount)
		} else {
			entry.Balance = new(big.Int).Sub(entry.Balance, tb.Amount)
			entry.LockBalance = new(big.Int).Add(entry.LockBalance, tb.Amount)
		}
		if err := db.gorm.Table("balances_" + requestId).Save(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}
