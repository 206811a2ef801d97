package constant

import "fmt"

/*地址类型：用户地址、热钱包、冷钱包*/
type AddressType string

const (
	AddressTypeUser AddressType = "user"
	AddressTypeHot  AddressType = "hot"
	AddressTypeCold AddressType = "cold"
)

func ParseAddressType(s string) (AddressType, error) {
	switch AddressType(s) {
	case AddressTypeUser, AddressTypeHot, AddressTypeCold:
		return AddressType(s), nil
	default:
		return "", fmt.Errorf("unknown address type: %q", s)
	}
}

/*交易状态流转: unsigned -> signed -> broadcasted -> confirmed -> notified*/
type TxStatus string

const (
	TxStatusUnsigned    TxStatus = "unsigned"
	TxStatusSigned      TxStatus = "signed"
	TxStatusBroadcasted TxStatus = "broadcasted"
	TxStatusConfirmed   TxStatus = "confirmed"
	TxStatusNotified    TxStatus = "notified"
	TxStatusFallback    TxStatus = "fallback"
)

/*业务语义上的交易类型*/
type TransactionType string

const (
	TxTypeUnKnow     TransactionType = "unknown"
	TxTypeDeposit    TransactionType = "deposit"
	TxTypeWithdraw   TransactionType = "withdraw"
	TxTypeCollection TransactionType = "collection"
	TxTypeHot2Cold   TransactionType = "hot2cold"
	TxTypeCold2Hot   TransactionType = "cold2hot"
)

/*资产类型：原生 CELO 或 ERC20（含作为手续费代币的稳定币）*/
type TokenType string

const (
	TokenTypeCelo  TokenType = "CELO"
	TokenTypeErc20 TokenType = "ERC20"
)
