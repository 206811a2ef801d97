package services

import (
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"celo-wallet-service/database"
	"celo-wallet-service/database/constant"
	"celo-wallet-service/database/dynamic"
	"celo-wallet-service/txtypes"
)

func ok(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Msg: msg, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: CodeError, Msg: msg})
}

/*项目方注册，注册成功后按模板建出该项目方的业务表*/
func (w *WalletApiService) BusinessRegister(c *gin.Context) {
	var req BusinessRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	business := &database.Business{
		GUID:        uuid.New(),
		BusinessUid: req.RequestId,
		NotifyUrl:   req.NotifyUrl,
		Timestamp:   uint64(time.Now().Unix()),
	}
	if err := w.db.Business.StoreBusiness(business); err != nil {
		fail(c, http.StatusInternalServerError, "store business db fail")
		return
	}
	dynamic.CreateTableFromTemplate(req.RequestId, w.db)
	ok(c, "register business success", nil)
}

/*批量公钥转地址，地址与零余额一起入库*/
func (w *WalletApiService) ExportAddressByPublicKeys(c *gin.Context) {
	var req ExportAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	var (
		retAddresses []*AddressItem
		dbAddresses  []*database.Address
		balances     []*database.Balances
	)
	for _, item := range req.PublicKeys {
		address, err := publicKeyToAddress(item.PublicKey)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid public key: "+err.Error())
			return
		}
		addressType, err := constant.ParseAddressType(item.Type)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		dbAddresses = append(dbAddresses, &database.Address{
			GUID:        uuid.New(),
			Address:     address,
			AddressType: addressType,
			PublicKey:   item.PublicKey,
			Timestamp:   uint64(time.Now().Unix()),
		})
		balances = append(balances, &database.Balances{
			GUID:         uuid.New(),
			Address:      address,
			TokenAddress: common.Address{},
			AddressType:  addressType,
			Balance:      big.NewInt(0),
			LockBalance:  big.NewInt(0),
			Timestamp:    uint64(time.Now().Unix()),
		})
		retAddresses = append(retAddresses, &AddressItem{Type: item.Type, Address: address.Hex()})
	}

	if err := w.db.Transaction(func(tx *database.DB) error {
		if err := tx.Address.StoreAddresses(req.RequestId, dbAddresses); err != nil {
			return err
		}
		return tx.Balances.StoreBalances(req.RequestId, balances)
	}); err != nil {
		fail(c, http.StatusInternalServerError, "store addresses fail")
		return
	}
	ok(c, "export addresses success", retAddresses)
}

/*配置手续费代币白名单*/
func (w *WalletApiService) SetFeeCurrencies(c *gin.Context) {
	var req SetFeeCurrenciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	var currencies []database.FeeCurrencies
	for _, item := range req.FeeCurrencies {
		tokenAddress, err := txtypes.NormalizeAddress(item.TokenAddress)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		currencies = append(currencies, database.FeeCurrencies{
			GUID:         uuid.New(),
			TokenAddress: tokenAddress,
			Symbol:       item.Symbol,
			Decimals:     item.Decimals,
			Enabled:      item.Enabled,
			Timestamp:    uint64(time.Now().Unix()),
		})
	}
	if err := w.db.FeeCurrencies.StoreFeeCurrencies(req.RequestId, currencies); err != nil {
		fail(c, http.StatusInternalServerError, "store fee currencies fail")
		return
	}
	ok(c, "set fee currencies success", nil)
}

func (w *WalletApiService) ListFeeCurrencies(c *gin.Context) {
	requestId := c.Query("request_id")
	if requestId == "" {
		fail(c, http.StatusBadRequest, "request_id is required")
		return
	}
	currencies, err := w.db.FeeCurrencies.QueryFeeCurrencies(requestId)
	if err != nil {
		fail(c, http.StatusInternalServerError, "query fee currencies fail")
		return
	}
	ok(c, "query fee currencies success", currencies)
}

func (w *WalletApiService) QueryBalance(c *gin.Context) {
	requestId := c.Query("request_id")
	addressStr := c.Query("address")
	if requestId == "" || addressStr == "" {
		fail(c, http.StatusBadRequest, "request_id and address are required")
		return
	}
	address, err := txtypes.NormalizeAddress(addressStr)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	tokenAddress := common.Address{}
	if s := c.Query("token_address"); s != "" {
		tokenAddress, err = txtypes.NormalizeAddress(s)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	addressType := constant.AddressTypeUser
	if s := c.Query("address_type"); s != "" {
		addressType, err = constant.ParseAddressType(s)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	balance, err := w.db.Balances.QueryWalletBalanceByTokenAndAddress(requestId, addressType, address, tokenAddress)
	if err != nil {
		fail(c, http.StatusInternalServerError, "query balance fail")
		return
	}
	if balance == nil {
		fail(c, http.StatusNotFound, "balance not found")
		return
	}
	ok(c, "query balance success", &BalanceResponse{
		Address:      balance.Address.Hex(),
		TokenAddress: balance.TokenAddress.Hex(),
		Balance:      balance.Balance.String(),
		LockBalance:  balance.LockBalance.String(),
	})
}

func (w *WalletApiService) QueryDeposits(c *gin.Context) {
	requestId := c.Query("request_id")
	if requestId == "" {
		fail(c, http.StatusBadRequest, "request_id is required")
		return
	}
	if txHash := c.Query("tx_hash"); txHash != "" {
		deposit, err := w.db.Deposits.QueryDepositByTxHash(requestId, common.HexToHash(txHash))
		if err != nil {
			fail(c, http.StatusInternalServerError, "query deposit fail")
			return
		}
		ok(c, "query deposit success", deposit)
		return
	}
	deposits, err := w.db.Deposits.QueryUnConfirmedDeposits(requestId)
	if err != nil {
		fail(c, http.StatusInternalServerError, "query deposits fail")
		return
	}
	ok(c, "query deposits success", deposits)
}

func (w *WalletApiService) QueryWithdraws(c *gin.Context) {
	requestId := c.Query("request_id")
	if requestId == "" {
		fail(c, http.StatusBadRequest, "request_id is required")
		return
	}
	if guidStr := c.Query("guid"); guidStr != "" {
		guid, err := uuid.Parse(guidStr)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid guid")
			return
		}
		withdraw, err := w.db.Withdraws.QueryWithdrawByGuid(requestId, guid)
		if err != nil {
			fail(c, http.StatusInternalServerError, "query withdraw fail")
			return
		}
		ok(c, "query withdraw success", withdraw)
		return
	}
	status := constant.TxStatus(c.DefaultQuery("status", string(constant.TxStatusUnsigned)))
	withdraws, err := w.db.Withdraws.QueryWithdrawsByStatus(requestId, status)
	if err != nil {
		fail(c, http.StatusInternalServerError, "query withdraws fail")
		return
	}
	ok(c, "query withdraws success", withdraws)
}

/*
构建未签名提现交易。
带 fee_currency 时构建 0x7b 交易（白名单校验），返回的 unsigned_tx 即签名原像；
不带时构建动态费基础交易。项目方拿 sig_hash 去离线签名。
*/
func (w *WalletApiService) BuildUnsignedWithdraw(c *gin.Context) {
	var req BuildWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	from, err := txtypes.NormalizeAddress(req.From)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := txtypes.NormalizeAddress(req.To)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}
	amount, okAmount := new(big.Int).SetString(req.Amount, 10)
	if !okAmount || amount.Sign() < 0 {
		fail(c, http.StatusBadRequest, "invalid amount")
		return
	}
	var data []byte
	if req.Data != "" {
		data, err = hexutil.Decode(req.Data)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid data hex")
			return
		}
	}
	feeCurrency, err := w.resolveFeeCurrency(req.RequestId, req.FeeCurrency)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	tx, tip, feeCap, gasLimit, err := w.assembleTransaction(from, to, amount, data, feeCurrency)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	unsignedHex, sigHash, err := unsignedPayload(tx, w.chainId())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	withdraw := &database.Withdraws{
		GUID:                 uuid.New(),
		Timestamp:            uint64(time.Now().Unix()),
		Status:               constant.TxStatusUnsigned,
		BlockNumber:          big.NewInt(0),
		TxType:               constant.TxTypeWithdraw,
		FromAddress:          from,
		ToAddress:            to,
		Amount:               amount,
		GasLimit:             gasLimit,
		MaxFeePerGas:         feeCap.String(),
		MaxPriorityFeePerGas: tip.String(),
		FeeCurrency:          feeCurrencyOrZero(feeCurrency),
		TokenType:            constant.TokenTypeCelo,
		TxUnsignHex:          unsignedHex,
	}
	if err := w.db.Withdraws.StoreWithdraw(req.RequestId, withdraw); err != nil {
		fail(c, http.StatusInternalServerError, "store withdraw fail")
		return
	}
	ok(c, "build unsigned withdraw success", &BuildWithdrawResponse{
		Guid:       withdraw.GUID.String(),
		UnsignedTx: unsignedHex,
		SigHash:    sigHash.Hex(),
	})
}

/*项目方离线签名后提交，组装已签名编码并置为待广播*/
func (w *WalletApiService) SubmitWithdrawSignature(c *gin.Context) {
	var req SubmitSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	guid, err := uuid.Parse(req.Guid)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid guid")
		return
	}
	withdraw, err := w.db.Withdraws.QueryWithdrawByGuid(req.RequestId, guid)
	if err != nil {
		fail(c, http.StatusInternalServerError, "query withdraw fail")
		return
	}
	if withdraw == nil {
		fail(c, http.StatusNotFound, "withdraw not found")
		return
	}
	if withdraw.Status != constant.TxStatusUnsigned {
		fail(c, http.StatusBadRequest, "withdraw is not awaiting signature")
		return
	}
	sig, err := parseSignatureItem(req.Signature)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	signedHex, txHash, err := attachSignature(withdraw.TxUnsignHex, sig, w.chainId())
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	withdraw.TxSignHex = signedHex
	withdraw.TxHash = txHash
	withdraw.Status = constant.TxStatusSigned
	if err := w.db.Withdraws.UpdateWithdrawListById(req.RequestId, []*database.Withdraws{withdraw}); err != nil {
		fail(c, http.StatusInternalServerError, "update withdraw fail")
		return
	}
	ok(c, "submit signature success", &SubmitSignatureResponse{
		Guid:     withdraw.GUID.String(),
		SignedTx: signedHex,
		TxHash:   txHash.Hex(),
	})
}

/*内部调拨：热钱包在服务端直接签名，入 internals 表等广播*/
func (w *WalletApiService) InternalTransfer(c *gin.Context) {
	if w.hotSigner == nil {
		fail(c, http.StatusServiceUnavailable, "hot wallet signer is not configured")
		return
	}
	var req InternalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	txType := constant.TransactionType(req.TxType)
	switch txType {
	case constant.TxTypeCollection, constant.TxTypeHot2Cold, constant.TxTypeCold2Hot:
	default:
		fail(c, http.StatusBadRequest, "unsupported internal tx type")
		return
	}
	from, err := txtypes.NormalizeAddress(req.From)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := txtypes.NormalizeAddress(req.To)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}
	amount, okAmount := new(big.Int).SetString(req.Amount, 10)
	if !okAmount || amount.Sign() < 0 {
		fail(c, http.StatusBadRequest, "invalid amount")
		return
	}
	feeCurrency, err := w.resolveFeeCurrency(req.RequestId, req.FeeCurrency)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	tx, tip, feeCap, gasLimit, err := w.assembleTransaction(from, to, amount, nil, feeCurrency)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	unsignedHex, sigHash, err := unsignedPayload(tx, w.chainId())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	sig, err := w.hotSigner.SignDigest(sigHash)
	if err != nil {
		fail(c, http.StatusInternalServerError, "sign internal transfer fail")
		return
	}
	signedHex, txHash, err := attachSignature(unsignedHex, *sig, w.chainId())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	internal := &database.Internals{
		GUID:                 uuid.New(),
		Timestamp:            uint64(time.Now().Unix()),
		Status:               constant.TxStatusSigned,
		BlockNumber:          big.NewInt(0),
		TxType:               txType,
		FromAddress:          from,
		ToAddress:            to,
		Amount:               amount,
		GasLimit:             gasLimit,
		MaxFeePerGas:         feeCap.String(),
		MaxPriorityFeePerGas: tip.String(),
		FeeCurrency:          feeCurrencyOrZero(feeCurrency),
		TokenType:            constant.TokenTypeCelo,
		TxUnsignHex:          unsignedHex,
		TxSignHex:            signedHex,
	}
	if err := w.db.Internals.StoreInternal(req.RequestId, internal); err != nil {
		fail(c, http.StatusInternalServerError, "store internal fail")
		return
	}
	ok(c, "internal transfer accepted", &SubmitSignatureResponse{
		Guid:     internal.GUID.String(),
		SignedTx: signedHex,
		TxHash:   txHash.Hex(),
	})
}

func (w *WalletApiService) chainId() *big.Int {
	return new(big.Int).SetUint64(w.conf.ChainNode.ChainId)
}

/*手续费代币可选：填了就校验格式并过白名单*/
func (w *WalletApiService) resolveFeeCurrency(requestId, feeCurrencyStr string) (*common.Address, error) {
	if feeCurrencyStr == "" {
		return nil, nil
	}
	feeCurrency, err := txtypes.NormalizeAddress(feeCurrencyStr)
	if err != nil {
		return nil, err
	}
	exist, err := w.db.FeeCurrencies.FeeCurrencyExist(requestId, feeCurrency)
	if err != nil {
		return nil, err
	}
	if !exist {
		return nil, errNotWhitelisted
	}
	return &feeCurrency, nil
}

/*查 nonce、估 gas、取价，组装出未签名交易*/
func (w *WalletApiService) assembleTransaction(from, to common.Address, amount *big.Int, data []byte, feeCurrency *common.Address) (txtypes.Transaction, *big.Int, *big.Int, uint64, error) {
	nonce, err := w.rpcClient.GetNonce(from)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	tip, err := w.rpcClient.SuggestGasTipCap(feeCurrency)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	gasPrice, err := w.rpcClient.SuggestGasPrice(feeCurrency)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	/*feeCap = 2*gasPrice + tip，基础费翻倍内不被挤出*/
	feeCap := new(big.Int).Add(new(big.Int).Mul(gasPrice, big.NewInt(2)), tip)

	callArgs := map[string]interface{}{
		"from":  from.Hex(),
		"to":    to.Hex(),
		"value": hexutil.EncodeBig(amount),
	}
	if len(data) > 0 {
		callArgs["data"] = hexutil.Encode(data)
	}
	gasLimit, err := w.rpcClient.EstimateGas(callArgs, feeCurrency)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	chainId := w.chainId()
	txReq := &txtypes.TxRequest{
		ChainID:              chainId,
		Nonce:                &nonce,
		Gas:                  &gasLimit,
		MaxFeePerGas:         feeCap,
		MaxPriorityFeePerGas: tip,
		Value:                amount,
		Data:                 data,
		From:                 &from,
		To:                   &to,
		FeeCurrency:          feeCurrency,
	}
	tx, err := txtypes.CreateTransaction(txReq)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	return tx, tip, feeCap, gasLimit, nil
}

/*未签名编码与待签摘要，0x7b 与基础交易各走各的*/
func unsignedPayload(tx txtypes.Transaction, chainId *big.Int) (string, common.Hash, error) {
	switch t := tx.(type) {
	case *txtypes.Cip64Tx:
		unsigned, err := t.UnsignedSerialized()
		if err != nil {
			return "", common.Hash{}, err
		}
		sigHash, err := t.SigHash()
		if err != nil {
			return "", common.Hash{}, err
		}
		return hexutil.Encode(unsigned), sigHash, nil
	case *types.Transaction:
		raw, err := t.MarshalBinary()
		if err != nil {
			return "", common.Hash{}, err
		}
		sigHash := types.LatestSignerForChainID(chainId).Hash(t)
		return hexutil.Encode(raw), sigHash, nil
	default:
		return "", common.Hash{}, errUnknownTxKind
	}
}

/*把签名attach 到未签名编码上，返回已签名编码与交易哈希*/
func attachSignature(unsignedHex string, sig txtypes.Signature, chainId *big.Int) (string, common.Hash, error) {
	raw, err := hexutil.Decode(unsignedHex)
	if err != nil {
		return "", common.Hash{}, err
	}
	if len(raw) > 0 && raw[0] == txtypes.Cip64TxType {
		tx, err := txtypes.ParseCip64Tx(raw)
		if err != nil {
			return "", common.Hash{}, err
		}
		if err := tx.SetSignature(sig); err != nil {
			return "", common.Hash{}, err
		}
		signed, err := tx.Serialized()
		if err != nil {
			return "", common.Hash{}, err
		}
		return hexutil.Encode(signed), crypto.Keccak256Hash(signed), nil
	}

	baseTx := new(types.Transaction)
	if err := baseTx.UnmarshalBinary(raw); err != nil {
		return "", common.Hash{}, err
	}
	sigBytes := make([]byte, 65)
	sig.R.FillBytes(sigBytes[:32])
	sig.S.FillBytes(sigBytes[32:64])
	sigBytes[64] = byte(sig.YParity)
	signedTx, err := baseTx.WithSignature(types.LatestSignerForChainID(chainId), sigBytes)
	if err != nil {
		return "", common.Hash{}, err
	}
	signed, err := signedTx.MarshalBinary()
	if err != nil {
		return "", common.Hash{}, err
	}
	return hexutil.Encode(signed), signedTx.Hash(), nil
}

func parseSignatureItem(item *SignatureItem) (txtypes.Signature, error) {
	r, err := hexutil.DecodeBig(item.R)
	if err != nil {
		return txtypes.Signature{}, errInvalidSignature
	}
	s, err := hexutil.DecodeBig(item.S)
	if err != nil {
		return txtypes.Signature{}, errInvalidSignature
	}
	return txtypes.Signature{YParity: item.YParity, R: r, S: s}, nil
}

/*支持压缩(33B)与非压缩(65B)两种公钥编码*/
func publicKeyToAddress(publicKeyHex string) (common.Address, error) {
	raw, err := hexutil.Decode(publicKeyHex)
	if err != nil {
		return common.Address{}, err
	}
	if len(raw) == 33 {
		pubKey, err := crypto.DecompressPubkey(raw)
		if err != nil {
			return common.Address{}, err
		}
		return crypto.PubkeyToAddress(*pubKey), nil
	}
	pubKey, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

func feeCurrencyOrZero(feeCurrency *common.Address) common.Address {
	if feeCurrency == nil {
		return common.Address{}
	}
	return *feeCurrency
}
