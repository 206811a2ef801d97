package rpcclient

import (
	"context"
	"math/big"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"celo-wallet-service/txtypes"
)

/*区块头的本地封装，链上返回的 JSON 解析成该结构落库*/
type BlockHeader struct {
	Hash       common.Hash `json:"hash"`
	ParentHash common.Hash `json:"parentHash"`
	Number     *big.Int    `json:"number"`
	Timestamp  uint64      `json:"timestamp"`
}

type rpcHeader struct {
	Hash       common.Hash    `json:"hash"`
	ParentHash common.Hash    `json:"parentHash"`
	Number     *hexutil.Big   `json:"number"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
}

/*区块内交易的裸 JSON 视图。geth 的 types.Transaction 不认识 0x7b，
所以这里不走 ethclient 的区块解码，只取扫链需要的字段*/
type RpcTransaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	Type        hexutil.Uint64  `json:"type"`
	Input       hexutil.Bytes   `json:"input"`
	FeeCurrency *common.Address `json:"feeCurrency,omitempty"`
}

type rpcBlock struct {
	Hash         common.Hash       `json:"hash"`
	ParentHash   common.Hash       `json:"parentHash"`
	Number       *hexutil.Big      `json:"number"`
	Timestamp    hexutil.Uint64    `json:"timestamp"`
	Transactions []*RpcTransaction `json:"transactions"`
}

/*按手续费代币缓存的 gas 报价有效期*/
const gasPriceCacheTTL = 3 * time.Second

/*
直连 Celo 节点的客户端。
区块头带 ristretto 缓存（回滚检查会反复读同一段头），
gas 报价按手续费代币短时缓存（同一轮构建多笔提现时省掉重复询价）。
*/
type CeloClient struct {
	Ctx         context.Context
	rpcClient   *rpc.Client
	headerCache *ristretto.Cache[string, *BlockHeader]
	gasCache    *ristretto.Cache[string, *big.Int]
}

func NewCeloClient(ctx context.Context, rpcUrl string) (*CeloClient, error) {
	client, err := rpc.DialContext(ctx, rpcUrl)
	if err != nil {
		return nil, errors.Wrap(err, "dial celo node fail")
	}
	log.Info("NewCeloClient", "rpcUrl", rpcUrl)
	return newCeloClient(ctx, client)
}

func newCeloClient(ctx context.Context, client *rpc.Client) (*CeloClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *BlockHeader]{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init header cache fail")
	}
	gasCache, err := ristretto.NewCache(&ristretto.Config[string, *big.Int]{
		NumCounters: 1_000,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init gas price cache fail")
	}
	return &CeloClient{Ctx: ctx, rpcClient: client, headerCache: cache, gasCache: gasCache}, nil
}

/*链上发生回滚后清空区块头缓存，回滚比对必须读到新分叉的头*/
func (c *CeloClient) PurgeHeaderCache() {
	c.headerCache.Clear()
}

func (c *CeloClient) Close() {
	c.headerCache.Close()
	c.gasCache.Close()
	c.rpcClient.Close()
}

func (c *CeloClient) ChainID() (*big.Int, error) {
	var result hexutil.Big
	if err := c.rpcClient.CallContext(c.Ctx, &result, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

/*获取区块头，number 为 nil 时取最新块。最新块不入缓存*/
func (c *CeloClient) GetBlockHeader(number *big.Int) (*BlockHeader, error) {
	numArg := "latest"
	if number != nil {
		numArg = hexutil.EncodeBig(number)
		if header, ok := c.headerCache.Get(numArg); ok {
			return header, nil
		}
	}
	var raw *rpcHeader
	err := c.rpcClient.CallContext(c.Ctx, &raw, "eth_getBlockByNumber", numArg, false)
	if err != nil {
		log.Error("get block header fail", "number", numArg, "err", err)
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("block not found")
	}
	header := &BlockHeader{
		Hash:       raw.Hash,
		ParentHash: raw.ParentHash,
		Number:     raw.Number.ToInt(),
		Timestamp:  uint64(raw.Timestamp),
	}
	if number != nil {
		c.headerCache.Set(numArg, header, 1)
	}
	return header, nil
}

/*获取区块内全部交易*/
func (c *CeloClient) GetBlockInfo(blockNumber *big.Int) ([]*RpcTransaction, error) {
	var block *rpcBlock
	err := c.rpcClient.CallContext(c.Ctx, &block, "eth_getBlockByNumber", hexutil.EncodeBig(blockNumber), true)
	if err != nil {
		log.Error("get block by number fail", "number", blockNumber, "err", err)
		return nil, err
	}
	if block == nil {
		return nil, errors.New("block not found")
	}
	return block.Transactions, nil
}

func (c *CeloClient) GetTransactionByHash(hash common.Hash) (*RpcTransaction, error) {
	var tx *RpcTransaction
	err := c.rpcClient.CallContext(c.Ctx, &tx, "eth_getTransactionByHash", hash)
	if err != nil {
		log.Error("get transaction by hash fail", "hash", hash, "err", err)
		return nil, err
	}
	return tx, nil
}

func (c *CeloClient) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.rpcClient.CallContext(c.Ctx, &receipt, "eth_getTransactionReceipt", hash)
	if err != nil {
		log.Error("get transaction receipt fail", "hash", hash, "err", err)
		return nil, err
	}
	return receipt, nil
}

/*广播已签名交易原始字节（含 0x7b 首字节）*/
func (c *CeloClient) SendRawTransaction(rawTx hexutil.Bytes) (common.Hash, error) {
	var txHash common.Hash
	log.Info("send raw transaction", "rawTx", rawTx.String())
	err := c.rpcClient.CallContext(c.Ctx, &txHash, "eth_sendRawTransaction", rawTx)
	if err != nil {
		log.Error("send raw transaction fail", "err", err)
		return common.Hash{}, err
	}
	return txHash, nil
}

func (c *CeloClient) GetNonce(address common.Address) (uint64, error) {
	var nonce hexutil.Uint64
	err := c.rpcClient.CallContext(c.Ctx, &nonce, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return uint64(nonce), nil
}

/*Celo 的 eth_gasPrice 可带手续费代币参数，返回以该代币计价的 gas 单价*/
func (c *CeloClient) SuggestGasPrice(feeCurrency *common.Address) (*big.Int, error) {
	return c.cachedGasQuote("eth_gasPrice", feeCurrency)
}

func (c *CeloClient) SuggestGasTipCap(feeCurrency *common.Address) (*big.Int, error) {
	return c.cachedGasQuote("eth_maxPriorityFeePerGas", feeCurrency)
}

func (c *CeloClient) cachedGasQuote(method string, feeCurrency *common.Address) (*big.Int, error) {
	cacheKey := method
	if feeCurrency != nil {
		cacheKey += ":" + feeCurrency.Hex()
	}
	if price, ok := c.gasCache.Get(cacheKey); ok {
		return price, nil
	}
	var result hexutil.Big
	var err error
	if feeCurrency == nil {
		err = c.rpcClient.CallContext(c.Ctx, &result, method)
	} else {
		err = c.rpcClient.CallContext(c.Ctx, &result, method, feeCurrency)
	}
	if err != nil {
		return nil, err
	}
	price := (*big.Int)(&result)
	c.gasCache.SetWithTTL(cacheKey, price, 1, gasPriceCacheTTL)
	return price, nil
}

/*估算 gas。带手续费代币时由 txtypes.EstimateGasArgs 注入 feeCurrency 字段*/
func (c *CeloClient) EstimateGas(callArgs map[string]interface{}, feeCurrency *common.Address) (uint64, error) {
	args := txtypes.EstimateGasArgs("eth_estimateGas", []interface{}{callArgs}, feeCurrency)
	var gas hexutil.Uint64
	err := c.rpcClient.CallContext(c.Ctx, &gas, "eth_estimateGas", args...)
	if err != nil {
		log.Error("estimate gas fail", "err", err)
		return 0, err
	}
	return uint64(gas), nil
}
