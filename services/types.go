package services

/*统一响应外壳*/
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

const (
	CodeSuccess = 0
	CodeError   = 1
)

type BusinessRegisterRequest struct {
	RequestId string `json:"request_id" binding:"required"`
	NotifyUrl string `json:"notify_url" binding:"required"`
}

type PublicKeyItem struct {
	Type      string `json:"type" binding:"required"`
	PublicKey string `json:"public_key" binding:"required"`
}

type ExportAddressRequest struct {
	RequestId  string           `json:"request_id" binding:"required"`
	PublicKeys []*PublicKeyItem `json:"public_keys" binding:"required"`
}

type AddressItem struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

type FeeCurrencyItem struct {
	TokenAddress string `json:"token_address" binding:"required"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	Enabled      bool   `json:"enabled"`
}

type SetFeeCurrenciesRequest struct {
	RequestId     string             `json:"request_id" binding:"required"`
	FeeCurrencies []*FeeCurrencyItem `json:"fee_currencies" binding:"required"`
}

/*构建未签名提现交易*/
type BuildWithdrawRequest struct {
	RequestId string `json:"request_id" binding:"required"`
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	/*十进制 wei 金额*/
	Amount string `json:"amount" binding:"required"`
	/*可选：CIP-64 手续费代币地址，留空则用原生 CELO 付费*/
	FeeCurrency string `json:"fee_currency"`
	/*可选：十六进制 calldata*/
	Data string `json:"data"`
}

type BuildWithdrawResponse struct {
	Guid string `json:"guid"`
	/*未签名编码（CIP-64 为签名原像）*/
	UnsignedTx string `json:"unsigned_tx"`
	/*待签名摘要*/
	SigHash string `json:"sig_hash"`
}

type SignatureItem struct {
	YParity uint64 `json:"y_parity"`
	R       string `json:"r" binding:"required"`
	S       string `json:"s" binding:"required"`
}

type SubmitSignatureRequest struct {
	RequestId string         `json:"request_id" binding:"required"`
	Guid      string         `json:"guid" binding:"required"`
	Signature *SignatureItem `json:"signature" binding:"required"`
}

type SubmitSignatureResponse struct {
	Guid string `json:"guid"`
	/*已签名整笔编码，广播任务直接发这个*/
	SignedTx string `json:"signed_tx"`
	TxHash   string `json:"tx_hash"`
}

/*内部调拨（归集、热转冷、冷转热），热钱包直接签名*/
type InternalTransferRequest struct {
	RequestId   string `json:"request_id" binding:"required"`
	TxType      string `json:"tx_type" binding:"required"`
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	FeeCurrency string `json:"fee_currency"`
}

type BalanceResponse struct {
	Address      string `json:"address"`
	TokenAddress string `json:"token_address"`
	Balance      string `json:"balance"`
	LockBalance  string `json:"lock_balance"`
}
