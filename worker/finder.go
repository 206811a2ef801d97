package worker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"celo-wallet-service/common/retry"
	"celo-wallet-service/common/tasks"
	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/database/constant"
)

/*
交易发现器：消费 businessChannels 中同步器推送的批次，
处理充值、提现、归集、内部交易的链上发现与入库
*/
type Finder struct {
	BaseSynchronizer *BaseSynchronizer

	/*确认位*/
	confirms       uint8
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group
}

func NewFinder(synchronizer *BaseSynchronizer, cfg *config.Config, shutdown context.CancelCauseFunc) (*Finder, error) {
	resCtx, resCancel := context.WithCancel(context.Background())
	return &Finder{
		BaseSynchronizer: synchronizer,
		confirms:         uint8(cfg.ChainNode.Confirmations),
		resourceCtx:      resCtx,
		resourceCancel:   resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			shutdown(fmt.Errorf("fail to execute finder tasks: %w", err))
		}},
	}, nil
}

func (f *Finder) Start() error {
	f.tasks.Go(func() error {
		log.Info("handle batch task start")
		for {
			select {
			case <-f.resourceCtx.Done():
				log.Info("handle batch task done")
				return nil
			case batch, ok := <-f.BaseSynchronizer.businessChannels:
				if !ok {
					/*同步器停机时会关闭管道，发现器随之正常退出*/
					log.Info("business channel closed, finder exit")
					return nil
				}
				log.Info("business channel batch", "length", len(batch))
				if err := f.handleBatch(batch); err != nil {
					return fmt.Errorf("failed to handle batch, stopping finder: %w", err)
				}
			}
		}
	})
	return nil
}

func (f *Finder) Stop() error {
	var result error
	f.resourceCancel()
	log.Info("stop finder......")
	if err := f.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await finder %w", err))
		return result
	}
	log.Info("stop finder success")
	return nil
}

/*
处理一批次交易：
充值：新记录入库，等确认位任务推进确认数
提现/内部：项目方先前提交过的记录，更新状态为已确认
交易流水：统一入 transactions 表
余额：按入账出账调整
*/
func (f *Finder) handleBatch(batch map[string]*BatchTransactions) error {
	businessList, err := f.BaseSynchronizer.database.Business.QueryBusinessList()
	if err != nil {
		log.Error("failed to query business list", "err", err)
		return err
	}
	if len(businessList) == 0 {
		return fmt.Errorf("failed to query business list")
	}

	for _, business := range businessList {
		batchTxs, exists := batch[business.BusinessUid]
		if !exists {
			continue
		}
		var (
			transactionFlowList []*database.Transactions
			depositList         []*database.Deposits
			withdrawList        []*Transaction
			internalList        []*Transaction
			balances            []*database.TokenBalance
		)
		log.Info("handle business flow", "businessId", business.BusinessUid, "blockHeight", batchTxs.BlockHeight, "txn", len(batchTxs.Transactions))
		for _, tx := range batchTxs.Transactions {
			receipt, err := f.BaseSynchronizer.rpcClient.GetTransactionReceipt(tx.Hash)
			if err != nil {
				log.Error("failed to get transaction receipt", "hash", tx.Hash, "err", err)
				return err
			}
			if receipt == nil {
				return fmt.Errorf("transaction receipt not found: txHash = %s", tx.Hash)
			}
			if receipt.Status != types.ReceiptStatusSuccessful {
				log.Warn("skip reverted transaction", "hash", tx.Hash)
				continue
			}

			balances = append(balances, f.buildBalanceAdjustments(tx)...)

			transactionFlowList = append(transactionFlowList, f.BuildTransaction(tx, receipt))

			switch tx.TxType {
			case constant.TxTypeDeposit:
				depositList = append(depositList, f.HandleDeposit(tx, receipt))
			case constant.TxTypeWithdraw:
				withdrawList = append(withdrawList, tx)
			case constant.TxTypeCollection, constant.TxTypeCold2Hot, constant.TxTypeHot2Cold:
				internalList = append(internalList, tx)
			default:
			}
		}

		retryStrategy := &retry.ExponentialStrategy{Min: 1000, Max: 20_000, MaxJitter: 250}
		if _, err := retry.Do[interface{}](f.resourceCtx, 10, retryStrategy, func() (interface{}, error) {
			if err := f.BaseSynchronizer.database.Transaction(func(tx *database.DB) error {
				if len(depositList) > 0 {
					if err := tx.Deposits.StoreDeposits(business.BusinessUid, depositList); err != nil {
						return err
					}
					log.Info("store deposit transactions success", "totalTx", len(depositList))
				}
				if err := tx.Deposits.UpdateDepositsConfirms(business.BusinessUid, batchTxs.BlockHeight, uint64(f.confirms)); err != nil {
					log.Error("handle confirms fail", "err", err)
					return err
				}
				if len(balances) > 0 {
					if err := tx.Balances.UpdateOrCreate(business.BusinessUid, balances); err != nil {
						return err
					}
				}
				for _, w := range withdrawList {
					if err := tx.Withdraws.UpdateWithdrawStatusByTxHash(business.BusinessUid, w.Hash, constant.TxStatusConfirmed, w.BlockNumber); err != nil {
						return err
					}
				}
				for _, in := range internalList {
					if err := tx.Internals.UpdateInternalStatusByTxHash(business.BusinessUid, in.Hash, constant.TxStatusConfirmed, in.BlockNumber); err != nil {
						return err
					}
				}
				if len(transactionFlowList) > 0 {
					if err := tx.Transactions.StoreTransactions(business.BusinessUid, transactionFlowList); err != nil {
						return err
					}
				}
				return nil
			}); err != nil {
				log.Error("unable to persist batch", "err", err)
				return nil, err
			}
			return nil, nil
		}); err != nil {
			return err
		}
	}
	return nil
}

/*按交易类型拆出余额调整项*/
func (f *Finder) buildBalanceAdjustments(tx *Transaction) []*database.TokenBalance {
	now := uint64(time.Now().Unix())
	var adjustments []*database.TokenBalance
	switch tx.TxType {
	case constant.TxTypeDeposit:
		adjustments = append(adjustments, &database.TokenBalance{
			Address:     tx.ToAddress,
			AddressType: constant.AddressTypeUser,
			Amount:      tx.Value,
			Inbound:     true,
			Timestamp:   now,
		})
	case constant.TxTypeWithdraw:
		adjustments = append(adjustments, &database.TokenBalance{
			Address:     tx.FromAddress,
			AddressType: constant.AddressTypeHot,
			Amount:      tx.Value,
			Inbound:     false,
			Timestamp:   now,
		})
	case constant.TxTypeCollection:
		adjustments = append(adjustments,
			&database.TokenBalance{
				Address:     tx.FromAddress,
				AddressType: constant.AddressTypeUser,
				Amount:      tx.Value,
				Inbound:     false,
				Timestamp:   now,
			},
			&database.TokenBalance{
				Address:     tx.ToAddress,
				AddressType: constant.AddressTypeHot,
				Amount:      tx.Value,
				Inbound:     true,
				Timestamp:   now,
			})
	case constant.TxTypeHot2Cold:
		adjustments = append(adjustments,
			&database.TokenBalance{
				Address:     tx.FromAddress,
				AddressType: constant.AddressTypeHot,
				Amount:      tx.Value,
				Inbound:     false,
				Timestamp:   now,
			},
			&database.TokenBalance{
				Address:     tx.ToAddress,
				AddressType: constant.AddressTypeCold,
				Amount:      tx.Value,
				Inbound:     true,
				Timestamp:   now,
			})
	case constant.TxTypeCold2Hot:
		adjustments = append(adjustments,
			&database.TokenBalance{
				Address:     tx.FromAddress,
				AddressType: constant.AddressTypeCold,
				Amount:      tx.Value,
				Inbound:     false,
				Timestamp:   now,
			},
			&database.TokenBalance{
				Address:     tx.ToAddress,
				AddressType: constant.AddressTypeHot,
				Amount:      tx.Value,
				Inbound:     true,
				Timestamp:   now,
			})
	}
	return adjustments
}

/*构建交易流水记录，手续费按回执的 gasUsed * effectiveGasPrice 计*/
func (f *Finder) BuildTransaction(tx *Transaction, receipt *types.Receipt) *database.Transactions {
	fee := new(big.Int)
	if receipt.EffectiveGasPrice != nil {
		fee = new(big.Int).Mul(receipt.EffectiveGasPrice, new(big.Int).SetUint64(receipt.GasUsed))
	}
	return &database.Transactions{
		GUID:         uuid.New(),
		BlockHash:    receipt.BlockHash,
		BlockNumber:  tx.BlockNumber,
		Hash:         tx.Hash,
		FromAddress:  tx.FromAddress,
		ToAddress:    tx.ToAddress,
		TokenAddress: common.Address{},
		FeeCurrency:  feeCurrencyOrZero(tx.FeeCurrency),
		Fee:          fee,
		Amount:       tx.Value,
		Status:       constant.TxStatusBroadcasted,
		TxType:       tx.TxType,
		Timestamp:    uint64(time.Now().Unix()),
	}
}

/*充值记录构建，确认数从 0 起由确认位任务推进*/
func (f *Finder) HandleDeposit(tx *Transaction, receipt *types.Receipt) *database.Deposits {
	return &database.Deposits{
		GUID:        uuid.New(),
		Timestamp:   uint64(time.Now().Unix()),
		Status:      constant.TxStatusBroadcasted,
		Confirms:    0,
		BlockHash:   receipt.BlockHash,
		BlockNumber: tx.BlockNumber,
		TxHash:      tx.Hash,
		TxType:      tx.TxType,
		FromAddress: tx.FromAddress,
		ToAddress:   tx.ToAddress,
		Amount:      tx.Value,
		GasLimit:    receipt.GasUsed,
		FeeCurrency: feeCurrencyOrZero(tx.FeeCurrency),
		TokenType:   constant.TokenTypeCelo,
	}
}

func feeCurrencyOrZero(feeCurrency *common.Address) common.Address {
	if feeCurrency == nil {
		return common.Address{}
	}
	return *feeCurrency
}
