package worker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"celo-wallet-service/common/bigint"
	"celo-wallet-service/common/retry"
	"celo-wallet-service/common/tasks"
	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/rpcclient"
)

/*回滚任务：链重组后把本地状态退回到分叉点*/
type Fallback struct {
	BaseSynchronizer *BaseSynchronizer
	database         *database.DB
	rpcClient        *rpcclient.CeloClient
	resourceCtx      context.Context
	resourceCancel   context.CancelFunc
	tasks            tasks.Group
	ticker           *time.Ticker
	confirmations    uint64
}

func NewFallback(cfg *config.Config, db *database.DB, rpcClient *rpcclient.CeloClient, syncer *BaseSynchronizer, shutdown context.CancelCauseFunc) (*Fallback, error) {
	resCtx, resCancel := context.WithCancel(context.Background())
	return &Fallback{
		BaseSynchronizer: syncer,
		database:         db,
		rpcClient:        rpcClient,
		resourceCtx:      resCtx,
		resourceCancel:   resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			shutdown(fmt.Errorf("critical error in fallback: %w", err))
		}},
		ticker:        time.NewTicker(time.Second * 3),
		confirmations: uint64(cfg.ChainNode.Confirmations),
	}, nil
}

func (fb *Fallback) Start() error {
	log.Info("start fallback.........")
	fb.tasks.Go(func() error {
		for {
			select {
			case <-fb.ticker.C:
				if fallbackBlockHeader, isFallback := fb.BaseSynchronizer.fallbackState(); isFallback {
					log.Info("fallback task", "fallbackBlock", fallbackBlockHeader.Number)
					if err := fb.onFallback(fallbackBlockHeader); err != nil {
						log.Error("failed to handle fallback", "err", err)
						continue
					}
					dbLatestBlock, err := fb.database.Blocks.LatestBlocks()
					if err != nil {
						log.Error("query latest block fail", "err", err)
						continue
					}
					var fromHeader *rpcclient.BlockHeader
					if dbLatestBlock != nil {
						fromHeader = &rpcclient.BlockHeader{
							Hash:       dbLatestBlock.Hash,
							ParentHash: dbLatestBlock.ParentHash,
							Number:     dbLatestBlock.Number,
							Timestamp:  dbLatestBlock.Timestamp,
						}
					}
					/*从分叉点之前重新开始扫块*/
					fb.BaseSynchronizer.resumeFromFallback(rpcclient.NewBatchBlock(fb.rpcClient, fromHeader, new(big.Int).SetUint64(fb.confirmations)))
				}
			case <-fb.resourceCtx.Done():
				log.Info("stop fallback.........")
				return nil
			}
		}
	})
	return nil
}

func (fb *Fallback) Stop() error {
	var result error
	fb.resourceCancel()
	fb.ticker.Stop()
	log.Info("stop fallback......")
	if err := fb.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await fallback %w", err))
		return result
	}
	log.Info("stop fallback success")
	return nil
}

/*回滚区块表、充值、提现、内部、流水、余额表*/
func (fb *Fallback) onFallback(fallbackBlockHeader *rpcclient.BlockHeader) error {
	reorgBlockHeaders, entryBlockHeader, err := fb.findFallbackEntry(fallbackBlockHeader)
	if err != nil {
		log.Error("failed to find fallback entry", "err", err)
		return err
	}

	businessList, err := fb.database.Business.QueryBusinessList()
	if err != nil {
		log.Error("failed to query business list", "err", err)
		return err
	}

	/*被回滚交易的余额逆向调整项，按项目方分组*/
	fallbackBalances := make(map[string][]*database.TokenBalance)
	for _, business := range businessList {
		transactionList, err := fb.database.Transactions.QueryFallBackTransactions(business.BusinessUid, entryBlockHeader.Number, fallbackBlockHeader.Number)
		if err != nil {
			log.Error("failed to query fallback transactions", "err", err)
			return err
		}
		for _, transaction := range transactionList {
			fallbackBalances[business.BusinessUid] = append(fallbackBalances[business.BusinessUid], reverseAdjustments(transaction)...)
		}
	}

	retryStrategy := &retry.ExponentialStrategy{Min: 1000, Max: 20_000, MaxJitter: 250}
	if _, err := retry.Do[interface{}](fb.resourceCtx, 10, retryStrategy, func() (interface{}, error) {
		if err := fb.database.Transaction(func(tx *database.DB) error {
			if len(reorgBlockHeaders) > 0 {
				/*被回滚的区块备份*/
				if err := tx.ReorgBlocks.StoreReorgBlocks(reorgBlockHeaders); err != nil {
					log.Error("failed to store reorg blocks", "err", err)
					return err
				}
			}
			deleteFrom := new(big.Int).Add(entryBlockHeader.Number, bigint.One)
			if err := tx.Blocks.DeleteBlocksFrom(deleteFrom); err != nil {
				return err
			}
			if fallbackBlockHeader.Number.Cmp(entryBlockHeader.Number) > 0 {
				for _, business := range businessList {
					if err := tx.Deposits.HandleFallBackDeposits(business.BusinessUid, entryBlockHeader.Number, fallbackBlockHeader.Number); err != nil {
						log.Error("failed to handle fallback deposits", "err", err)
						return err
					}
					if err := tx.Withdraws.HandleFallBackWithdraw(business.BusinessUid, entryBlockHeader.Number, fallbackBlockHeader.Number); err != nil {
						log.Error("failed to handle fallback withdraws", "err", err)
						return err
					}
					if err := tx.Internals.HandleFallBackInternals(business.BusinessUid, entryBlockHeader.Number, fallbackBlockHeader.Number); err != nil {
						log.Error("failed to handle fallback internals", "err", err)
						return err
					}
					if err := tx.Transactions.HandleFallBackTransactions(business.BusinessUid, entryBlockHeader.Number, fallbackBlockHeader.Number); err != nil {
						log.Error("failed to handle fallback transactions", "err", err)
						return err
					}
					if adjustments := fallbackBalances[business.BusinessUid]; len(adjustments) > 0 {
						if err := tx.Balances.UpdateOrCreate(business.BusinessUid, adjustments); err != nil {
							log.Error("failed to reverse fallback balance", "err", err)
							return err
						}
					}
				}
			}
			return nil
		}); err != nil {
			log.Error("unable to persist fallback batch", "err", err)
			return nil, err
		}
		return nil, nil
	}); err != nil {
		return err
	}

	return nil
}

/*被回滚交易的余额调整取反：入账变出账、出账变入账*/
func reverseAdjustments(transaction *database.Transactions) []*database.TokenBalance {
	now := uint64(time.Now().Unix())
	return []*database.TokenBalance{
		{
			Address:      transaction.ToAddress,
			TokenAddress: transaction.TokenAddress,
			Amount:       transaction.Amount,
			Inbound:      false,
			Timestamp:    now,
		},
		{
			Address:      transaction.FromAddress,
			TokenAddress: transaction.TokenAddress,
			Amount:       transaction.Amount,
			Inbound:      true,
			Timestamp:    now,
		},
	}
}

/*从回滚块往回走，与链上逐块比对，找到分叉点*/
func (fb *Fallback) findFallbackEntry(fallbackBlockHeader *rpcclient.BlockHeader) ([]database.ReorgBlocks, *rpcclient.BlockHeader, error) {
	var reorgBlockHeaders []database.ReorgBlocks

	lastBlockHeader := fallbackBlockHeader
	for {
		lastBlockNumber := new(big.Int).Sub(lastBlockHeader.Number, bigint.One)

		chainBlockHeader, err := fb.rpcClient.GetBlockHeader(lastBlockNumber)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get block header info from chain: %w", err)
		}
		dbBlockHeader, err := fb.database.Blocks.QueryBlocksByNumber(lastBlockNumber)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get block header info from database: %w", err)
		}
		if dbBlockHeader == nil {
			/*库中没有更早的块了，以链上块为分叉点*/
			return reorgBlockHeaders, chainBlockHeader, nil
		}
		reorgBlockHeaders = append(reorgBlockHeaders, database.ReorgBlocks{
			Hash:       dbBlockHeader.Hash,
			ParentHash: dbBlockHeader.ParentHash,
			Number:     dbBlockHeader.Number,
			Timestamp:  dbBlockHeader.Timestamp,
		})

		if lastBlockHeader.ParentHash == chainBlockHeader.Hash {
			return reorgBlockHeaders, chainBlockHeader, nil
		}
		lastBlockHeader = chainBlockHeader
	}
}
