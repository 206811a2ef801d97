package worker

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"celo-wallet-service/common/clock"
	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/database/constant"
	"celo-wallet-service/rpcclient"
)

/*同步器：生产者，扫链出交易批次放入 businessChannels*/
type BaseSynchronizer struct {
	loopInterval     time.Duration
	headerBufferSize uint64
	/*核心管道，存放一批次的交易，map 中的 key 为业务方 id*/
	businessChannels chan map[string]*BatchTransactions

	rpcClient *rpcclient.CeloClient
	database  *database.DB

	/*本次扫描的区块头切片，仅 LoopFn 协程访问*/
	headers []rpcclient.BlockHeader
	worker  *clock.LoopFn

	/*回滚状态与扫块工具由 LoopFn 协程与 Fallback 定时协程共享，统一走 mu*/
	mu                  sync.Mutex
	blockBatch          *rpcclient.BatchBlock
	fallbackBlockHeader *rpcclient.BlockHeader
	isFallback          bool
}

/*扫链出的单个交易*/
type Transaction struct {
	BusinessId  string
	BlockNumber *big.Int
	FromAddress common.Address
	ToAddress   common.Address
	Hash        common.Hash
	Value       *big.Int
	/*CIP-64 交易的手续费代币，非 0x7b 交易为 nil*/
	FeeCurrency *common.Address
	TxType      constant.TransactionType
}

/*一批交易*/
type BatchTransactions struct {
	BlockHeight  uint64
	BatchId      string
	Transactions []*Transaction
}

func NewSynchronizer(cfg *config.Config, db *database.DB, rpcClient *rpcclient.CeloClient, shutdown context.CancelCauseFunc) (*BaseSynchronizer, error) {
	/*起扫点：库中最高块 > 配置的起始块 > 链上最新块*/
	dbLatestBlockHeader, err := db.Blocks.LatestBlocks()
	if err != nil {
		log.Error("get latest block from database fail")
		return nil, err
	}
	var fromHeader *rpcclient.BlockHeader

	if dbLatestBlockHeader != nil {
		log.Info("sync block", "number", dbLatestBlockHeader.Number, "hash", dbLatestBlockHeader.Hash)
		fromHeader = &rpcclient.BlockHeader{
			Hash:       dbLatestBlockHeader.Hash,
			ParentHash: dbLatestBlockHeader.ParentHash,
			Number:     dbLatestBlockHeader.Number,
			Timestamp:  dbLatestBlockHeader.Timestamp,
		}
	} else if cfg.ChainNode.StartingHeight > 0 {
		chainBlockHeader, err := rpcClient.GetBlockHeader(big.NewInt(int64(cfg.ChainNode.StartingHeight)))
		if err != nil {
			log.Error("get starting block header fail", "err", err)
			return nil, err
		}
		fromHeader = chainBlockHeader
	} else {
		chainLatestBlockHeader, err := rpcClient.GetBlockHeader(nil)
		if err != nil {
			log.Error("get chain latest block header fail", "err", err)
			return nil, err
		}
		fromHeader = chainLatestBlockHeader
	}

	baseSynchronizer := &BaseSynchronizer{
		loopInterval:        cfg.ChainNode.SynchronizerInterval,
		headerBufferSize:    cfg.ChainNode.BlocksStep,
		businessChannels:    make(chan map[string]*BatchTransactions),
		rpcClient:           rpcClient,
		blockBatch:          rpcclient.NewBatchBlock(rpcClient, fromHeader, big.NewInt(int64(cfg.ChainNode.Confirmations))),
		database:            db,
		isFallback:          false,
		fallbackBlockHeader: nil,
	}
	return baseSynchronizer, nil
}

func (syncer *BaseSynchronizer) Start() error {
	if syncer.worker != nil {
		return errors.New("already started")
	}
	syncer.worker = clock.NewLoopFn(clock.SystemClock, syncer.tick, func() error {
		log.Info("shutting down synchronizer produce...")
		close(syncer.businessChannels)
		return nil
	}, syncer.loopInterval)
	return nil
}

func (syncer *BaseSynchronizer) Stop() error {
	if syncer.worker == nil {
		return nil
	}
	return syncer.worker.Close()
}

func (syncer *BaseSynchronizer) tick(_ context.Context) {
	/*上一批还没处理完就不取新块，直接重试处理*/
	if len(syncer.headers) > 0 {
		log.Info("retrying previous batch")
	} else {
		syncer.fetchHeaders()
	}

	err := syncer.processBatch(syncer.headers)
	if err == nil {
		syncer.headers = nil
	}
}

func (syncer *BaseSynchronizer) fetchHeaders() {
	syncer.mu.Lock()
	if syncer.isFallback {
		/*回滚任务处理期间不取新块*/
		syncer.mu.Unlock()
		log.Warn("the block fallback, fallback task handling it now")
		return
	}
	blockBatch := syncer.blockBatch
	syncer.mu.Unlock()

	newHeaders, fallBackHeader, isReorg, err := blockBatch.NextHeaders(syncer.headerBufferSize)
	if err != nil {
		if isReorg && errors.Is(err, rpcclient.ErrBlockFallBack) {
			if syncer.markFallback(fallBackHeader) {
				log.Warn("found block fallback, start fallback task")
				/*缓存里的是旧分叉的头，回滚比对前必须清掉*/
				syncer.rpcClient.PurgeHeaderCache()
			} else {
				log.Warn("the block fallback, fallback task handling it now")
			}
		} else {
			log.Error("error querying for headers", "err", err)
		}
		return
	}
	if len(newHeaders) == 0 {
		log.Warn("no new headers. syncer at head?")
		return
	}
	syncer.headers = newHeaders
	log.Info("find new block headers success", "headers size", len(syncer.headers))
}

/*NextHeaders 发现回滚时记录回滚点，已处于回滚状态时忽略重复标记*/
func (syncer *BaseSynchronizer) markFallback(header *rpcclient.BlockHeader) bool {
	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if syncer.isFallback {
		return false
	}
	syncer.isFallback = true
	syncer.fallbackBlockHeader = header
	return true
}

/*Fallback 定时任务读取当前回滚状态*/
func (syncer *BaseSynchronizer) fallbackState() (*rpcclient.BlockHeader, bool) {
	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	return syncer.fallbackBlockHeader, syncer.isFallback
}

/*回滚处理完成，换上新的扫块起点并清除回滚标记*/
func (syncer *BaseSynchronizer) resumeFromFallback(blockBatch *rpcclient.BatchBlock) {
	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	syncer.blockBatch = blockBatch
	syncer.isFallback = false
	syncer.fallbackBlockHeader = nil
}

/*
批处理区块：
按区块获取交易，按项目方分类并识别交易语义，放入 businessChannels。
0x7b 交易的 feeCurrency 一并带出，供入库与通知使用。
*/
func (syncer *BaseSynchronizer) processBatch(headers []rpcclient.BlockHeader) error {
	if len(headers) == 0 {
		return nil
	}
	businessTxsMap := make(map[string]*BatchTransactions)
	blockHeaders := make([]database.Blocks, len(headers))

	businessList, err := syncer.database.Business.QueryBusinessList()
	if err != nil {
		log.Error("get business list fail", "err", err)
		return err
	}

	for i, header := range headers {
		log.Info("sync block data", "height", header.Number)
		blockHeaders[i] = database.Blocks{
			Hash:       header.Hash,
			ParentHash: header.ParentHash,
			Number:     header.Number,
			Timestamp:  header.Timestamp,
		}
		txList, err := syncer.rpcClient.GetBlockInfo(header.Number)
		if err != nil {
			log.Error("get block info fail", "err", err)
			return err
		}

		for _, business := range businessList {
			var businessTransactions []*Transaction
			for _, tx := range txList {
				if tx.To == nil {
					/*合约创建交易与钱包无关*/
					continue
				}
				toAddress := *tx.To
				fromAddress := tx.From
				existToAddress, toAddressType := syncer.database.Address.AddressExist(business.BusinessUid, &toAddress)
				existFromAddress, fromAddressType := syncer.database.Address.AddressExist(business.BusinessUid, &fromAddress)

				if !existToAddress && !existFromAddress {
					continue
				}
				log.Info("found transaction", "txHash", tx.Hash, "from", fromAddress, "to", toAddress, "fromAddressType", fromAddressType, "toAddressType", toAddressType)

				txItem := &Transaction{
					BusinessId:  business.BusinessUid,
					BlockNumber: header.Number,
					FromAddress: fromAddress,
					ToAddress:   toAddress,
					Hash:        tx.Hash,
					Value:       (*big.Int)(tx.Value),
					TxType:      constant.TxTypeUnKnow,
				}
				if uint8(tx.Type) == 0x7b {
					txItem.FeeCurrency = tx.FeeCurrency
				}

				/*
				* 充值：from 为外部地址，to 为用户地址
				* 提现：from 为热钱包地址，to 为外部地址
				* 归集：from 为用户地址，to 为热钱包地址（热钱包地址即归集地址）
				* 热转冷：from 为热钱包地址，to 为冷钱包地址
				* 冷转热：from 为冷钱包地址，to 为热钱包地址
				 */
				if !existFromAddress && (existToAddress && toAddressType == constant.AddressTypeUser) {
					txItem.TxType = constant.TxTypeDeposit
				} else if (existFromAddress && fromAddressType == constant.AddressTypeHot) && !existToAddress {
					txItem.TxType = constant.TxTypeWithdraw
				} else if (existFromAddress && fromAddressType == constant.AddressTypeUser) && (existToAddress && toAddressType == constant.AddressTypeHot) {
					txItem.TxType = constant.TxTypeCollection
				} else if (existFromAddress && fromAddressType == constant.AddressTypeHot) && (existToAddress && toAddressType == constant.AddressTypeCold) {
					txItem.TxType = constant.TxTypeHot2Cold
				} else if (existFromAddress && fromAddressType == constant.AddressTypeCold) && (existToAddress && toAddressType == constant.AddressTypeHot) {
					txItem.TxType = constant.TxTypeCold2Hot
				} else {
					continue
				}

				businessTransactions = append(businessTransactions, txItem)
			}
			if len(businessTransactions) > 0 {
				if businessTxsMap[business.BusinessUid] == nil {
					businessTxsMap[business.BusinessUid] = &BatchTransactions{
						BlockHeight:  header.Number.Uint64(),
						Transactions: businessTransactions,
					}
				} else {
					businessTxsMap[business.BusinessUid].BlockHeight = header.Number.Uint64()
					businessTxsMap[business.BusinessUid].Transactions = append(businessTxsMap[business.BusinessUid].Transactions, businessTransactions...)
				}
			}
		}
	}
	if len(blockHeaders) > 0 {
		if err := syncer.database.Blocks.StoreBlocks(blockHeaders); err != nil {
			return err
		}
		log.Info("store block headers success", "size", len(blockHeaders))
	}
	if len(businessTxsMap) > 0 {
		syncer.businessChannels <- businessTxsMap
	}
	return nil
}
