package database

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"celo-wallet-service/database/constant"
)

/*余额调整项，Inbound 为 true 表示入账*/
type TokenBalance struct {
	Address      common.Address       `json:"address"`
	TokenAddress common.Address       `json:"token_address"`
	AddressType  constant.AddressType `json:"address_type"`
	Amount       *big.Int             `json:"amount"`
	Inbound      bool                 `json:"inbound"`
	Timestamp    uint64               `json:"timestamp"`
}
