package txtypes

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uint64Ptr(v uint64) *uint64 { return &v }
func uint8Ptr(v uint8) *uint8    { return &v }

func TestDetermineTxType(t *testing.T) {
	assert.Nil(t, DetermineTxType(nil))

	/*没有 feeCurrency 也没有声明类型: 未定*/
	assert.Nil(t, DetermineTxType(&TxRequest{}))

	/*透传请求自带的类型*/
	got := DetermineTxType(&TxRequest{Type: uint8Ptr(types.DynamicFeeTxType)})
	require.NotNil(t, got)
	assert.Equal(t, uint8(types.DynamicFeeTxType), *got)

	/*带 feeCurrency 一律归为 CIP-64*/
	feeCurrency := common.HexToAddress(testFeeCurrency)
	got = DetermineTxType(&TxRequest{FeeCurrency: &feeCurrency})
	require.NotNil(t, got)
	assert.Equal(t, uint8(Cip64TxType), *got)
}

func TestCreateTransactionNilInput(t *testing.T) {
	tx, err := CreateTransaction(nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
}

func TestCreateTransactionIdempotent(t *testing.T) {
	original := newTestTx(t)
	tx, err := CreateTransaction(original)
	require.NoError(t, err)
	assert.Same(t, original, tx)
}

func TestCreateTransactionFromBytes(t *testing.T) {
	/*首字节 0x7b 走 CIP-64 解析*/
	raw, err := newTestTx(t).UnsignedSerialized()
	require.NoError(t, err)
	tx, err := CreateTransaction(raw)
	require.NoError(t, err)
	cip64, ok := tx.(*Cip64Tx)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(testFeeCurrency), *cip64.FeeCurrency())

	/*其余首字节交给通用基础交易解码*/
	to := common.HexToAddress(testRecipient)
	legacy := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	})
	legacyRaw, err := legacy.MarshalBinary()
	require.NoError(t, err)
	tx, err = CreateTransaction(legacyRaw)
	require.NoError(t, err)
	_, ok = tx.(*types.Transaction)
	require.True(t, ok)
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())

	/*十六进制字符串输入*/
	tx, err = CreateTransaction(hexutil.Encode(raw))
	require.NoError(t, err)
	assert.IsType(t, &Cip64Tx{}, tx)

	_, err = CreateTransaction([]byte{})
	assert.Error(t, err)
}

func TestCreateTransactionFromRequest(t *testing.T) {
	feeCurrency := common.HexToAddress(testFeeCurrency)
	to := common.HexToAddress(testRecipient)
	req := &TxRequest{
		Type:                 uint8Ptr(Cip64TxType),
		ChainID:              big.NewInt(42220),
		Nonce:                uint64Ptr(9),
		Gas:                  uint64Ptr(50_000),
		MaxFeePerGas:         big.NewInt(30_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		Value:                big.NewInt(5),
		To:                   &to,
		FeeCurrency:          &feeCurrency,
	}
	tx, err := CreateTransaction(req)
	require.NoError(t, err)
	cip64, ok := tx.(*Cip64Tx)
	require.True(t, ok)
	assert.Equal(t, int64(42220), cip64.ChainID.Int64())
	assert.Equal(t, uint64(9), cip64.Nonce)
	assert.Equal(t, to, *cip64.To)
	assert.Equal(t, feeCurrency, *cip64.FeeCurrency())
	/*源里缺失的字段保持未设置，不做默认填充*/
	assert.Nil(t, cip64.Data)
	assert.Nil(t, cip64.AccessList)
	assert.False(t, cip64.Signed())
}

func TestCreateTransactionSelectiveCopy(t *testing.T) {
	feeCurrency := common.HexToAddress(testFeeCurrency)
	req := &TxRequest{FeeCurrency: &feeCurrency}
	tx, err := CreateTransaction(req)
	require.NoError(t, err)
	cip64 := tx.(*Cip64Tx)
	assert.Nil(t, cip64.ChainID)
	assert.Nil(t, cip64.To)
	assert.Nil(t, cip64.Value)
	assert.Equal(t, uint64(0), cip64.Nonce)
}

func TestCreateTransactionFallbackToBase(t *testing.T) {
	/*没有 feeCurrency 的请求回落到通用基础交易*/
	req := &TxRequest{
		ChainID:      big.NewInt(1),
		MaxFeePerGas: big.NewInt(100),
		Gas:          uint64Ptr(21000),
	}
	tx, err := CreateTransaction(req)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())

	tx, err = CreateTransaction(&TxRequest{GasPrice: big.NewInt(100)})
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())

	/*声明了类型但没带 feeCurrency 的 0x7b 请求同样回落*/
	_, err = CreateTransaction(&TxRequest{Type: uint8Ptr(Cip64TxType)})
	assert.NoError(t, err)

	_, err = CreateTransaction(42)
	assert.Error(t, err)
}

func TestEstimateGasArgsInjection(t *testing.T) {
	feeCurrency := common.HexToAddress(testFeeCurrency)
	callArgs := map[string]interface{}{
		"from":  testRecipient,
		"value": "0x1",
	}
	args := []interface{}{callArgs, "latest"}

	out := EstimateGasArgs("eth_estimateGas", args, &feeCurrency)
	require.Len(t, out, 2)
	patched, ok := out[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, feeCurrency.Hex(), patched["feeCurrency"])
	assert.Equal(t, testRecipient, patched["from"])
	assert.Equal(t, "latest", out[1])

	/*纯函数：原始参数对象不被修改*/
	_, exists := callArgs["feeCurrency"]
	assert.False(t, exists)
}

func TestEstimateGasArgsPassthrough(t *testing.T) {
	feeCurrency := common.HexToAddress(testFeeCurrency)
	args := []interface{}{map[string]interface{}{"from": testRecipient}}

	/*不是 gas 估算调用*/
	assert.Equal(t, args, EstimateGasArgs("eth_call", args, &feeCurrency))
	/*上下文没有 feeCurrency*/
	out := EstimateGasArgs("eth_estimateGas", args, nil)
	assert.Equal(t, args, out)
	_, exists := args[0].(map[string]interface{})["feeCurrency"]
	assert.False(t, exists)
}
