package database

import (
	"errors"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Business 代表接入方（项目方）注册的信息。
type Business struct {
	GUID        uuid.UUID `gorm:"primaryKey" json:"guid"`
	BusinessUid string    `json:"business_uid"`
	NotifyUrl   string    `json:"notify_url"`
	Timestamp   uint64
}

// BusinessView 定义对 business 表的读操作接口。
type BusinessView interface {
	QueryBusinessList() ([]*Business, error)
	QueryBusinessByUuid(string) (*Business, error)
}

// BusinessDB 定义对 business 表的写操作接口（包含读接口 BusinessView）。
type BusinessDB interface {
	BusinessView

	StoreBusiness(*Business) error
}

type businessDB struct {
	gorm *gorm.DB
}

// NewBusinessDB 创建一个 BusinessDB 实例，供上层依赖注入使用。
func NewBusinessDB(db *gorm.DB) BusinessDB {
	return &businessDB{gorm: db}
}

// QueryBusinessList 查询所有已注册的接入方。
func (db *businessDB) QueryBusinessList() ([]*Business, error) {
	var business []*Business
	err := db.gorm.Table("business").Find(&business).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return business, err
}

// QueryBusinessByUuid 根据 business_uid 查询某个接入方。
func (db *businessDB) QueryBusinessByUuid(businessUid string) (*Business, error) {
	var business *Business
	result := db.gorm.Table("business").Where("business_uid", businessUid).First(&business)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Error("query business fail", "err", result.Error)
		return nil, result.Error
	}
	return business, nil
}

// StoreBusiness 插入新的接入方记录。
func (db *businessDB) StoreBusiness(business *Business) error {
	result := db.gorm.Table("business").Create(business)
	return result.Error
}
