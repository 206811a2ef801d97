package txtypes

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

/*CIP-64 交易类型标识，固定为 0x7b (123)*/
const Cip64TxType = 0x7b

var (
	/*未签名交易不能输出已签名编码*/
	ErrUnsignedTx = errors.New("transaction is not signed: use UnsignedSerialized for the pre-signing payload")
	/*feeCurrency 未设置，序列化前快速失败*/
	ErrMissingFeeCurrency = errors.New("fee currency is not set")
)

/*签名三元组，yParity 只能为 0 或 1*/
type Signature struct {
	YParity uint64
	R       *big.Int
	S       *big.Int
}

/*
CIP-64 交易（Celo 费用抽象交易）。
在 EIP-1559 动态费用交易的基础上追加一个 feeCurrency 字段，
表示用哪种代币支付 gas 费。
feeCurrency、签名、哈希为私有字段，只能通过校验的 setter 写入。
*/
type Cip64Tx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int // maxPriorityFeePerGas
	GasFeeCap  *big.Int // maxFeePerGas
	Gas        uint64
	To         *common.Address // nil 表示合约创建
	Value      *big.Int
	Data       []byte
	AccessList types.AccessList

	feeCurrency *common.Address
	signature   *Signature
	hash        *common.Hash
}

/*交易类型标识，派生属性，不可设置*/
func (tx *Cip64Tx) Type() uint8 { return Cip64TxType }

/*
NormalizeAddress 校验并归一化一个十六进制地址。
大小写混合时按 EIP-55 校验 checksum，全小写/全大写不校验。
*/
func NormalizeAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid hex address: %q", s)
	}
	addr := common.HexToAddress(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if strings.ToLower(raw) != raw && strings.ToUpper(raw) != raw && addr.Hex() != "0x"+raw {
		return common.Address{}, fmt.Errorf("invalid address checksum: %q", s)
	}
	return addr, nil
}

/*设置手续费代币地址，非法地址立即报错，不会延迟到序列化*/
func (tx *Cip64Tx) SetFeeCurrency(s string) error {
	addr, err := NormalizeAddress(s)
	if err != nil {
		return fmt.Errorf("invalid fee currency: %w", err)
	}
	tx.feeCurrency = &addr
	return nil
}

/*已经是 20 字节地址的直接设置入口*/
func (tx *Cip64Tx) SetFeeCurrencyAddress(addr common.Address) {
	tx.feeCurrency = &addr
}

func (tx *Cip64Tx) FeeCurrency() *common.Address {
	if tx.feeCurrency == nil {
		return nil
	}
	cpy := *tx.feeCurrency
	return &cpy
}

/*设置收款地址，带 checksum 校验*/
func (tx *Cip64Tx) SetTo(s string) error {
	addr, err := NormalizeAddress(s)
	if err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	tx.To = &addr
	return nil
}

/*
附加签名，完成 Unsigned -> Signed 状态转换。
签名一旦设置不会被本组件清除。
*/
func (tx *Cip64Tx) SetSignature(sig Signature) error {
	if err := validateSignature(sig); err != nil {
		return err
	}
	tx.signature = &Signature{
		YParity: sig.YParity,
		R:       new(big.Int).Set(sig.R),
		S:       new(big.Int).Set(sig.S),
	}
	return nil
}

func (tx *Cip64Tx) Signature() *Signature {
	return tx.signature
}

func (tx *Cip64Tx) Signed() bool {
	return tx.signature != nil
}

/*
交易哈希。只有从已签名的原始字节解析出来的交易才带哈希，
手工构造再补签名的交易不会自动生成。
*/
func (tx *Cip64Tx) Hash() (common.Hash, bool) {
	if tx.hash == nil {
		return common.Hash{}, false
	}
	return *tx.hash, true
}

/*按固定顺序组装 10 个字段，feeCurrency 缺失直接失败*/
func (tx *Cip64Tx) fields() ([]interface{}, error) {
	if tx.feeCurrency == nil {
		return nil, ErrMissingFeeCurrency
	}
	var to []byte
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	return []interface{}{
		bigOrZero(tx.ChainID),
		tx.Nonce,
		bigOrZero(tx.GasTipCap),
		bigOrZero(tx.GasFeeCap),
		tx.Gas,
		to,
		bigOrZero(tx.Value),
		tx.Data,
		tx.AccessList,
		tx.feeCurrency.Bytes(),
	}, nil
}

/*未签名编码: 0x7b || rlp(10 字段)，同时也是签名摘要的原像*/
func (tx *Cip64Tx) UnsignedSerialized() ([]byte, error) {
	fields, err := tx.fields()
	if err != nil {
		return nil, err
	}
	return encodeTyped(fields)
}

/*已签名编码: 0x7b || rlp(13 字段)，未签名时报 ErrUnsignedTx*/
func (tx *Cip64Tx) Serialized() ([]byte, error) {
	if tx.signature == nil {
		return nil, ErrUnsignedTx
	}
	fields, err := tx.fields()
	if err != nil {
		return nil, err
	}
	fields = append(fields, tx.signature.YParity, tx.signature.R, tx.signature.S)
	return encodeTyped(fields)
}

/*规范编码，等价于 Serialized，满足通用交易接口*/
func (tx *Cip64Tx) MarshalBinary() ([]byte, error) {
	return tx.Serialized()
}

/*待签名摘要: keccak256(未签名编码)*/
func (tx *Cip64Tx) SigHash() (common.Hash, error) {
	raw, err := tx.UnsignedSerialized()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}

/*
ParseCip64Tx 从原始字节（含首字节类型标识）解析交易。
首字节由分发方匹配，这里只负责去掉；
顶层列表必须恰好是 10（未签名）或 13（已签名）个元素。
13 个元素时用整段原始字节计算交易哈希并解析签名。
*/
func ParseCip64Tx(raw []byte) (*Cip64Tx, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("typed transaction too short: %s", hexutil.Encode(raw))
	}
	var elems []rlp.RawValue
	if err := rlp.DecodeBytes(raw[1:], &elems); err != nil {
		return nil, fmt.Errorf("invalid transaction payload %s: %w", hexutil.Encode(raw), err)
	}
	if len(elems) != 10 && len(elems) != 13 {
		return nil, fmt.Errorf("invalid field count %d, want 10 or 13: %s", len(elems), hexutil.Encode(raw))
	}

	tx := new(Cip64Tx)
	var err error
	if tx.ChainID, err = decodeBig(elems[0]); err != nil {
		return nil, fieldError("chainId", elems[0], err)
	}
	if tx.Nonce, err = decodeUint64(elems[1]); err != nil {
		return nil, fieldError("nonce", elems[1], err)
	}
	if tx.GasTipCap, err = decodeBig(elems[2]); err != nil {
		return nil, fieldError("maxPriorityFeePerGas", elems[2], err)
	}
	if tx.GasFeeCap, err = decodeBig(elems[3]); err != nil {
		return nil, fieldError("maxFeePerGas", elems[3], err)
	}
	if tx.Gas, err = decodeUint64(elems[4]); err != nil {
		return nil, fieldError("gasLimit", elems[4], err)
	}
	if tx.To, err = decodeAddress(elems[5]); err != nil {
		return nil, fieldError("to", elems[5], err)
	}
	if tx.Value, err = decodeBig(elems[6]); err != nil {
		return nil, fieldError("value", elems[6], err)
	}
	if tx.Data, err = decodeBytes(elems[7]); err != nil {
		return nil, fieldError("data", elems[7], err)
	}
	if err = rlp.DecodeBytes(elems[8], &tx.AccessList); err != nil {
		return nil, fieldError("accessList", elems[8], err)
	}
	/*解析路径不强制 feeCurrency 非空，只做形状校验*/
	if tx.feeCurrency, err = decodeAddress(elems[9]); err != nil {
		return nil, fieldError("feeCurrency", elems[9], err)
	}

	if len(elems) == 13 {
		h := crypto.Keccak256Hash(raw)
		tx.hash = &h
		sig, err := parseSignatureFields(elems[10], elems[11], elems[12])
		if err != nil {
			return nil, err
		}
		tx.signature = sig
	}
	return tx, nil
}

/*共享的签名字段解析，yParity 只允许 0/1，r/s 做标量范围校验*/
func parseSignatureFields(vRaw, rRaw, sRaw rlp.RawValue) (*Signature, error) {
	yParity, err := decodeUint64(vRaw)
	if err != nil {
		return nil, fieldError("yParity", vRaw, err)
	}
	r, err := decodeBig(rRaw)
	if err != nil {
		return nil, fieldError("r", rRaw, err)
	}
	s, err := decodeBig(sRaw)
	if err != nil {
		return nil, fieldError("s", sRaw, err)
	}
	sig := Signature{YParity: yParity, R: r, S: s}
	if err := validateSignature(sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

func validateSignature(sig Signature) error {
	if sig.YParity > 1 {
		return fmt.Errorf("invalid yParity %d, want 0 or 1", sig.YParity)
	}
	if sig.R == nil || sig.S == nil {
		return errors.New("signature r/s must not be nil")
	}
	if !crypto.ValidateSignatureValues(byte(sig.YParity), sig.R, sig.S, false) {
		return errors.New("invalid signature scalar values")
	}
	return nil
}

func encodeTyped(fields []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(Cip64TxType)
	if err := rlp.Encode(&buf, fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

/*数值字段缺省按零编码*/
func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func decodeBig(elem rlp.RawValue) (*big.Int, error) {
	v := new(big.Int)
	if err := rlp.DecodeBytes(elem, v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeUint64(elem rlp.RawValue) (uint64, error) {
	var v uint64
	if err := rlp.DecodeBytes(elem, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func decodeBytes(elem rlp.RawValue) ([]byte, error) {
	var b []byte
	if err := rlp.DecodeBytes(elem, &b); err != nil {
		return nil, err
	}
	return b, nil
}

/*空字节串解析为 nil 地址，其余必须正好 20 字节*/
func decodeAddress(elem rlp.RawValue) (*common.Address, error) {
	b, err := decodeBytes(elem)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) != common.AddressLength {
		return nil, fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(b))
	}
	addr := common.BytesToAddress(b)
	return &addr, nil
}

func fieldError(name string, raw rlp.RawValue, err error) error {
	return fmt.Errorf("invalid %s field %s: %w", name, hexutil.Encode(raw), err)
}
