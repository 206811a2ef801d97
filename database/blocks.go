package database

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

type Blocks struct {
	Hash       common.Hash `gorm:"primaryKey;serializer:bytes"`
	ParentHash common.Hash `gorm:"serializer:bytes"`
	Number     *big.Int    `gorm:"serializer:u256"`
	Timestamp  uint64
}

type BlocksView interface {
	LatestBlocks() (*Blocks, error)
	QueryBlocksByNumber(number *big.Int) (*Blocks, error)
}

type BlocksDB interface {
	BlocksView

	StoreBlocks([]Blocks) error
	/*回滚时删除 number 之后（含）的区块*/
	DeleteBlocksFrom(number *big.Int) error
}

type blocksDB struct {
	gorm *gorm.DB
}

func NewBlocksDB(db *gorm.DB) BlocksDB {
	return &blocksDB{gorm: db}
}

func (db *blocksDB) StoreBlocks(blocks []Blocks) error {
	result := db.gorm.Table("blocks").CreateInBatches(&blocks, len(blocks))
	return result.Error
}

/*库中最高的区块，空库返回 nil*/
func (db *blocksDB) LatestBlocks() (*Blocks, error) {
	var block Blocks
	result := db.gorm.Table("blocks").Order("number desc").Take(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &block, nil
}

func (db *blocksDB) QueryBlocksByNumber(number *big.Int) (*Blocks, error) {
	var block Blocks
	result := db.gorm.Table("blocks").Where("number = ?", number.Uint64()).Take(&block)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &block, nil
}

func (db *blocksDB) DeleteBlocksFrom(number *big.Int) error {
	result := db.gorm.Table("blocks").Where("number >= ?", number.Uint64()).Delete(&Blocks{})
	return result.Error
}
