package txtypes

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	/*Alfajores 测试网 cUSD 合约地址*/
	testFeeCurrency = "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"
	testRecipient   = "0x5409ED021D9299bf6814279A6A1411A7e866A631"
)

func newTestTx(t *testing.T) *Cip64Tx {
	tx := &Cip64Tx{
		ChainID:   big.NewInt(44787),
		Nonce:     7,
		GasTipCap: big.NewInt(2_000_000_000),
		GasFeeCap: big.NewInt(20_000_000_000),
		Gas:       90_000,
		Value:     big.NewInt(1_000_000_000_000_000_000),
		Data:      []byte{0xa9, 0x05, 0x9c, 0xbb},
	}
	require.NoError(t, tx.SetTo(testRecipient))
	require.NoError(t, tx.SetFeeCurrency(testFeeCurrency))
	return tx
}

func testSignature() Signature {
	return Signature{
		YParity: 1,
		R:       new(big.Int).SetBytes(common.FromHex("0x2c6847d87fc8cfee2a49a7bebed9b4cf2b2b0a773d5e11a24c4a3a0c2ce7c09d")),
		S:       new(big.Int).SetBytes(common.FromHex("0x280aa47a744f2379d2a31a1dcbd2e222b746b0e484b4e8e1e64d0b0bbdbecfd6")),
	}
}

func TestUnsignedSerializedRoundTrip(t *testing.T) {
	tx := newTestTx(t)
	tx.AccessList = types.AccessList{{
		Address:     common.HexToAddress("0x0000000000000000000000000000000000ce1000"),
		StorageKeys: []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")},
	}}

	raw, err := tx.UnsignedSerialized()
	require.NoError(t, err)
	assert.Equal(t, byte(Cip64TxType), raw[0])

	parsed, err := ParseCip64Tx(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, tx.ChainID.Cmp(parsed.ChainID))
	assert.Equal(t, tx.Nonce, parsed.Nonce)
	assert.Equal(t, 0, tx.GasTipCap.Cmp(parsed.GasTipCap))
	assert.Equal(t, 0, tx.GasFeeCap.Cmp(parsed.GasFeeCap))
	assert.Equal(t, tx.Gas, parsed.Gas)
	assert.Equal(t, tx.To, parsed.To)
	assert.Equal(t, 0, tx.Value.Cmp(parsed.Value))
	assert.Equal(t, tx.Data, parsed.Data)
	assert.Equal(t, tx.AccessList, parsed.AccessList)
	assert.Equal(t, tx.FeeCurrency(), parsed.FeeCurrency())

	/*未签名交易解析后既没有签名也没有哈希*/
	assert.False(t, parsed.Signed())
	_, ok := parsed.Hash()
	assert.False(t, ok)
}

func TestSignedSerializedRoundTrip(t *testing.T) {
	tx := newTestTx(t)
	sig := testSignature()
	require.NoError(t, tx.SetSignature(sig))

	raw, err := tx.Serialized()
	require.NoError(t, err)
	assert.Equal(t, byte(Cip64TxType), raw[0])

	parsed, err := ParseCip64Tx(raw)
	require.NoError(t, err)
	require.True(t, parsed.Signed())
	assert.Equal(t, sig.YParity, parsed.Signature().YParity)
	assert.Equal(t, 0, sig.R.Cmp(parsed.Signature().R))
	assert.Equal(t, 0, sig.S.Cmp(parsed.Signature().S))

	/*哈希是整段原始字节（含类型标识）的 keccak256*/
	hash, ok := parsed.Hash()
	require.True(t, ok)
	assert.Equal(t, crypto.Keccak256Hash(raw), hash)
}

func TestSerializeDeterministic(t *testing.T) {
	a, err := newTestTx(t).UnsignedSerialized()
	require.NoError(t, err)
	b, err := newTestTx(t).UnsignedSerialized()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTypeTagInvariant(t *testing.T) {
	zero := &Cip64Tx{}
	require.NoError(t, zero.SetFeeCurrency(testFeeCurrency))
	raw, err := zero.UnsignedSerialized()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7b), raw[0])
	assert.Equal(t, uint8(0x7b), zero.Type())

	full := newTestTx(t)
	require.NoError(t, full.SetSignature(testSignature()))
	raw, err = full.Serialized()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7b), raw[0])
}

/*数值 0 编码为空字节串，解码回 0*/
func TestZeroEncoding(t *testing.T) {
	tx := &Cip64Tx{ChainID: big.NewInt(0)}
	require.NoError(t, tx.SetFeeCurrency(testFeeCurrency))
	raw, err := tx.UnsignedSerialized()
	require.NoError(t, err)

	var elems []rlp.RawValue
	require.NoError(t, rlp.DecodeBytes(raw[1:], &elems))
	require.Len(t, elems, 10)
	/*0x80 即空字符串*/
	assert.Equal(t, rlp.RawValue{0x80}, elems[0])

	parsed, err := ParseCip64Tx(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.ChainID.Sign())
	assert.Equal(t, uint64(0), parsed.Nonce)
	assert.Nil(t, parsed.To)
	assert.Empty(t, parsed.Data)
	assert.Empty(t, parsed.AccessList)
}

func TestParseFieldCountRejection(t *testing.T) {
	feeCurrency := common.HexToAddress(testFeeCurrency)
	base := []interface{}{
		big.NewInt(44787), uint64(0), big.NewInt(0), big.NewInt(0), uint64(0),
		[]byte{}, big.NewInt(0), []byte{}, types.AccessList{}, feeCurrency.Bytes(),
	}
	encode := func(fields []interface{}) []byte {
		raw, err := encodeTyped(fields)
		require.NoError(t, err)
		return raw
	}

	/*恰好 10 或 13 个元素可以通过*/
	_, err := ParseCip64Tx(encode(base))
	assert.NoError(t, err)
	sig := testSignature()
	signed := append(append([]interface{}{}, base...), sig.YParity, sig.R, sig.S)
	_, err = ParseCip64Tx(encode(signed))
	assert.NoError(t, err)

	for _, tc := range []struct {
		name   string
		fields []interface{}
	}{
		{"9 elements", base[:9]},
		{"11 elements", append(append([]interface{}{}, base...), uint64(1))},
		{"14 elements", append(append([]interface{}{}, signed...), uint64(1))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCip64Tx(encode(tc.fields))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid field count")
			/*错误里带原始字节的十六进制便于排查*/
			assert.Contains(t, err.Error(), "0x7b")
		})
	}
}

func TestMissingFeeCurrencyFailsFast(t *testing.T) {
	tx := &Cip64Tx{ChainID: big.NewInt(44787)}
	_, err := tx.UnsignedSerialized()
	assert.ErrorIs(t, err, ErrMissingFeeCurrency)

	require.NoError(t, tx.SetSignature(testSignature()))
	_, err = tx.Serialized()
	assert.ErrorIs(t, err, ErrMissingFeeCurrency)
}

func TestSerializedRequiresSignature(t *testing.T) {
	tx := newTestTx(t)
	_, err := tx.Serialized()
	require.ErrorIs(t, err, ErrUnsignedTx)
	assert.Contains(t, err.Error(), "UnsignedSerialized")

	_, err = tx.MarshalBinary()
	assert.ErrorIs(t, err, ErrUnsignedTx)
}

func TestSetFeeCurrencyValidation(t *testing.T) {
	tx := &Cip64Tx{}
	assert.Error(t, tx.SetFeeCurrency("not-an-address"))
	assert.Error(t, tx.SetFeeCurrency("0x1234"))
	/*大小写混合但 checksum 错误*/
	assert.Error(t, tx.SetFeeCurrency("0x874069fa1Eb16D44d622F2e0Ca25eeA172369bC1"))
	assert.Nil(t, tx.FeeCurrency())

	/*全小写跳过 checksum 校验*/
	require.NoError(t, tx.SetFeeCurrency("0x874069fa1eb16d44d622f2e0ca25eea172369bc1"))
	/*正确 checksum*/
	require.NoError(t, tx.SetFeeCurrency(testFeeCurrency))
	assert.Equal(t, common.HexToAddress(testFeeCurrency), *tx.FeeCurrency())
}

func TestSetSignatureValidation(t *testing.T) {
	tx := newTestTx(t)
	sig := testSignature()

	bad := sig
	bad.YParity = 2
	assert.Error(t, tx.SetSignature(bad))

	bad = sig
	bad.R = big.NewInt(0)
	assert.Error(t, tx.SetSignature(bad))

	bad = sig
	bad.S = nil
	assert.Error(t, tx.SetSignature(bad))

	assert.False(t, tx.Signed())
	require.NoError(t, tx.SetSignature(sig))
	assert.True(t, tx.Signed())
}

/*手工构造再补签名的交易不会追溯生成哈希*/
func TestNoRetroactiveHash(t *testing.T) {
	tx := newTestTx(t)
	require.NoError(t, tx.SetSignature(testSignature()))
	_, ok := tx.Hash()
	assert.False(t, ok)

	hash, err := tx.SigHash()
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
}

/*
chainId=44787 的最小场景：所有数值为零、无收款方、空数据、空访问列表。
最后一个元素必须是 20 字节的 feeCurrency。
*/
func TestAlfajoresMinimalScenario(t *testing.T) {
	tx := &Cip64Tx{ChainID: big.NewInt(44787)}
	require.NoError(t, tx.SetFeeCurrency(testFeeCurrency))

	raw, err := tx.UnsignedSerialized()
	require.NoError(t, err)
	require.Equal(t, byte(0x7b), raw[0])

	var elems []rlp.RawValue
	require.NoError(t, rlp.DecodeBytes(raw[1:], &elems))
	require.Len(t, elems, 10)
	var feeCurrency []byte
	require.NoError(t, rlp.DecodeBytes(elems[9], &feeCurrency))
	assert.Equal(t, common.HexToAddress(testFeeCurrency).Bytes(), feeCurrency)

	parsed, err := ParseCip64Tx(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(44787), parsed.ChainID.Int64())
	assert.Equal(t, uint64(0), parsed.Nonce)
	assert.Nil(t, parsed.To)
	assert.Equal(t, common.HexToAddress(testFeeCurrency), *parsed.FeeCurrency())
	assert.False(t, parsed.Signed())
	_, ok := parsed.Hash()
	assert.False(t, ok)
}

/*
解析路径不强制 feeCurrency 非空：10 元素里最后一个为空字节串时照样通过，
但这样的交易重新序列化会失败。构造/序列化路径与解析路径的不对称是有意保留的。
*/
func TestParseCip64TxEmptyFeeCurrency(t *testing.T) {
	fields := []interface{}{
		big.NewInt(44787), uint64(0), big.NewInt(0), big.NewInt(0), uint64(0),
		[]byte{}, big.NewInt(0), []byte{}, types.AccessList{}, []byte{},
	}
	raw, err := encodeTyped(fields)
	require.NoError(t, err)

	parsed, err := ParseCip64Tx(raw)
	require.NoError(t, err)
	assert.Nil(t, parsed.FeeCurrency())

	_, err = parsed.UnsignedSerialized()
	assert.ErrorIs(t, err, ErrMissingFeeCurrency)
}

func TestParseFieldErrors(t *testing.T) {
	feeCurrency := common.HexToAddress(testFeeCurrency)

	/*to 字段长度非 0 也非 20 字节*/
	fields := []interface{}{
		big.NewInt(1), uint64(0), big.NewInt(0), big.NewInt(0), uint64(0),
		[]byte{0x01, 0x02}, big.NewInt(0), []byte{}, types.AccessList{}, feeCurrency.Bytes(),
	}
	raw, err := encodeTyped(fields)
	require.NoError(t, err)
	_, err = ParseCip64Tx(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to")

	/*访问列表形状损坏：pair 不是 [address, keys] 列表*/
	fields[5] = []byte{}
	fields[8] = []interface{}{[]byte{0x01}}
	raw, err = encodeTyped(fields)
	require.NoError(t, err)
	_, err = ParseCip64Tx(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accessList")

	/*签名 yParity 越界*/
	good := []interface{}{
		big.NewInt(1), uint64(0), big.NewInt(0), big.NewInt(0), uint64(0),
		[]byte{}, big.NewInt(0), []byte{}, types.AccessList{}, feeCurrency.Bytes(),
		uint64(2), big.NewInt(1), big.NewInt(1),
	}
	raw, err = encodeTyped(good)
	require.NoError(t, err)
	_, err = ParseCip64Tx(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yParity")
}
