package database

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"celo-wallet-service/database/constant"
)

type Address struct {
	GUID        uuid.UUID            `gorm:"primary_key" json:"guid"`
	Address     common.Address       `gorm:"type:varchar;unique;not null;serializer:bytes" json:"address"`
	AddressType constant.AddressType `gorm:"type:varchar(10);not null;default:'user'" json:"address_type"`
	PublicKey   string               `gorm:"type:varchar;not null" json:"public_key"`
	Timestamp   uint64               `gorm:"type:bigint;not null;check:timestamp > 0" json:"timestamp"`
}

type AddressesView interface {
	AddressExist(requestId string, address *common.Address) (bool, constant.AddressType)
	QueryAddressesByType(requestId string, addressType constant.AddressType) ([]*Address, error)
	QueryHotWallet(requestId string) (*Address, error)
}

type AddressDB interface {
	AddressesView

	StoreAddresses(string, []*Address) error
}

type addressDB struct {
	gorm *gorm.DB
}

func NewAddressDB(db *gorm.DB) AddressDB {
	return &addressDB{gorm: db}
}

func (db *addressDB) StoreAddresses(requestId string, addresses []*Address) error {
	result := db.gorm.Table("addresses_"+requestId).CreateInBatches(&addresses, len(addresses))
	return result.Error
}

/*地址是否归本接入方管理，以及它的类型*/
func (db *addressDB) AddressExist(requestId string, address *common.Address) (bool, constant.AddressType) {
	var addressEntry Address
	result := db.gorm.Table("addresses_"+requestId).Where("address = ?", address.Bytes()).Take(&addressEntry)
	if result.Error != nil {
		return false, constant.AddressTypeUser
	}
	return true, addressEntry.AddressType
}

func (db *addressDB) QueryAddressesByType(requestId string, addressType constant.AddressType) ([]*Address, error) {
	var addresses []*Address
	result := db.gorm.Table("addresses_"+requestId).Where("address_type = ?", addressType).Find(&addresses)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return addresses, nil
}

/*接入方的热钱包地址，没有则返回 nil*/
func (db *addressDB) QueryHotWallet(requestId string) (*Address, error) {
	var addressEntry Address
	result := db.gorm.Table("addresses_"+requestId).Where("address_type = ?", constant.AddressTypeHot).Take(&addressEntry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &addressEntry, nil
}
