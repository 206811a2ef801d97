package database

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

/*发生回滚时被剔除的区块，留档排查*/
type ReorgBlocks struct {
	Hash       common.Hash `gorm:"primaryKey;serializer:bytes"`
	ParentHash common.Hash `gorm:"serializer:bytes"`
	Number     *big.Int    `gorm:"serializer:u256"`
	Timestamp  uint64
}

type ReorgBlocksView interface {
}

type ReorgBlocksDB interface {
	ReorgBlocksView

	StoreReorgBlocks([]ReorgBlocks) error
}

type reorgBlocksDB struct {
	gorm *gorm.DB
}

func NewReorgBlocksDB(db *gorm.DB) ReorgBlocksDB {
	return &reorgBlocksDB{gorm: db}
}

func (r *reorgBlocksDB) StoreReorgBlocks(blocks []ReorgBlocks) error {
	result := r.gorm.Table("reorg_blocks").CreateInBatches(&blocks, len(blocks))
	return result.Error
}
