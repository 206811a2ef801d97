package txtypes

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

/*钱包侧对链上交易的最小依赖面，geth 的 *types.Transaction 天然满足*/
type Transaction interface {
	Type() uint8
	MarshalBinary() ([]byte, error)
}

/*
TxRequest 是上层框架传下来的松散交易请求，
指针字段为 nil 表示调用方未提供。
*/
type TxRequest struct {
	Type                 *uint8            `json:"type,omitempty"`
	ChainID              *big.Int          `json:"chainId,omitempty"`
	Nonce                *uint64           `json:"nonce,omitempty"`
	Gas                  *uint64           `json:"gas,omitempty"`
	GasPrice             *big.Int          `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int          `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int          `json:"maxPriorityFeePerGas,omitempty"`
	Value                *big.Int          `json:"value,omitempty"`
	Data                 []byte            `json:"data,omitempty"`
	From                 *common.Address   `json:"from,omitempty"`
	To                   *common.Address   `json:"to,omitempty"`
	AccessList           *types.AccessList `json:"accessList,omitempty"`
	FeeCurrency          *common.Address   `json:"feeCurrency,omitempty"`
	Signature            *Signature        `json:"-"`
}

/*
DetermineTxType 判定请求的交易类型：
带 feeCurrency 的请求归为 CIP-64，
否则透传请求自身声明的类型（可能为 nil，表示未定）。
*/
func DetermineTxType(req *TxRequest) *uint8 {
	if req == nil {
		return nil
	}
	if req.FeeCurrency != nil {
		t := uint8(Cip64TxType)
		return &t
	}
	return req.Type
}

/*
CreateTransaction 按输入形状分发构造交易：
  - nil: 空的基础交易
  - *Cip64Tx: 原样返回（幂等）
  - 原始字节/十六进制串: 首字节 0x7b 走本类型解析，否则交给通用基础类型
  - *TxRequest: 带 feeCurrency 且类型匹配时构造 CIP-64，否则回落基础类型
*/
func CreateTransaction(input interface{}) (Transaction, error) {
	switch v := input.(type) {
	case nil:
		return types.NewTx(&types.LegacyTx{}), nil
	case *Cip64Tx:
		return v, nil
	case []byte:
		return createFromBytes(v)
	case hexutil.Bytes:
		return createFromBytes(v)
	case string:
		b, err := hexutil.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction hex: %w", err)
		}
		return createFromBytes(b)
	case *TxRequest:
		return createFromRequest(v)
	default:
		return nil, fmt.Errorf("unsupported transaction input type %T", input)
	}
}

func createFromBytes(raw []byte) (Transaction, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty transaction bytes")
	}
	if raw[0] == Cip64TxType {
		return ParseCip64Tx(raw)
	}
	/*其余类型标识交给通用基础交易解码*/
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return tx, nil
}

/*
字段集构造。选择性拷贝：源里缺的字段目标里保持未设置，不做默认填充。
CIP-64 没有 legacy gasPrice 槽位，该字段在这条分支上被丢弃。
*/
func createFromRequest(req *TxRequest) (Transaction, error) {
	if req == nil {
		return types.NewTx(&types.LegacyTx{}), nil
	}
	if req.FeeCurrency != nil && (req.Type == nil || *req.Type == Cip64TxType) {
		tx := new(Cip64Tx)
		if req.ChainID != nil {
			tx.ChainID = new(big.Int).Set(req.ChainID)
		}
		if req.Nonce != nil {
			tx.Nonce = *req.Nonce
		}
		if req.Gas != nil {
			tx.Gas = *req.Gas
		}
		if req.MaxFeePerGas != nil {
			tx.GasFeeCap = new(big.Int).Set(req.MaxFeePerGas)
		}
		if req.MaxPriorityFeePerGas != nil {
			tx.GasTipCap = new(big.Int).Set(req.MaxPriorityFeePerGas)
		}
		if req.Value != nil {
			tx.Value = new(big.Int).Set(req.Value)
		}
		if req.Data != nil {
			tx.Data = common.CopyBytes(req.Data)
		}
		if req.To != nil {
			to := *req.To
			tx.To = &to
		}
		if req.AccessList != nil {
			tx.AccessList = *req.AccessList
		}
		tx.SetFeeCurrencyAddress(*req.FeeCurrency)
		if req.Signature != nil {
			if err := tx.SetSignature(*req.Signature); err != nil {
				return nil, err
			}
		}
		return tx, nil
	}
	return baseFromRequest(req)
}

/*通用基础交易构造（回落路径），按字段形状挑选内层类型*/
func baseFromRequest(req *TxRequest) (Transaction, error) {
	var (
		nonce uint64
		gas   uint64
		to    *common.Address
	)
	if req.Nonce != nil {
		nonce = *req.Nonce
	}
	if req.Gas != nil {
		gas = *req.Gas
	}
	if req.To != nil {
		addr := *req.To
		to = &addr
	}
	if req.MaxFeePerGas != nil || req.MaxPriorityFeePerGas != nil {
		inner := &types.DynamicFeeTx{
			ChainID:   bigOrZero(req.ChainID),
			Nonce:     nonce,
			GasTipCap: bigOrZero(req.MaxPriorityFeePerGas),
			GasFeeCap: bigOrZero(req.MaxFeePerGas),
			Gas:       gas,
			To:        to,
			Value:     bigOrZero(req.Value),
			Data:      common.CopyBytes(req.Data),
		}
		if req.AccessList != nil {
			inner.AccessList = *req.AccessList
		}
		return types.NewTx(inner), nil
	}
	if req.AccessList != nil {
		return types.NewTx(&types.AccessListTx{
			ChainID:    bigOrZero(req.ChainID),
			Nonce:      nonce,
			GasPrice:   bigOrZero(req.GasPrice),
			Gas:        gas,
			To:         to,
			Value:      bigOrZero(req.Value),
			Data:       common.CopyBytes(req.Data),
			AccessList: *req.AccessList,
		}), nil
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: bigOrZero(req.GasPrice),
		Gas:      gas,
		To:       to,
		Value:    bigOrZero(req.Value),
		Data:     common.CopyBytes(req.Data),
	}), nil
}

/*
EstimateGasArgs 改写出站的 gas 估算调用参数。
只有 method 为 eth_estimateGas 且上下文交易带 feeCurrency 时，
才复制首个调用对象并注入 feeCurrency 键，其余情况原样返回。
纯函数，不修改入参。
*/
func EstimateGasArgs(method string, args []interface{}, feeCurrency *common.Address) []interface{} {
	if method != "eth_estimateGas" || feeCurrency == nil || len(args) == 0 {
		return args
	}
	callArgs, ok := args[0].(map[string]interface{})
	if !ok {
		return args
	}
	patched := make(map[string]interface{}, len(callArgs)+1)
	for k, v := range callArgs {
		patched[k] = v
	}
	patched["feeCurrency"] = feeCurrency.Hex()
	out := make([]interface{}, len(args))
	copy(out, args)
	out[0] = patched
	return out
}
