package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"celo-wallet-service/common/retry"
	"celo-wallet-service/common/tasks"
	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/database/constant"
	"celo-wallet-service/rpcclient"
)

/*提现定时任务：把已签名的提现交易广播上链*/
type Withdraw struct {
	rpcClient      *rpcclient.CeloClient
	db             *database.DB
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group
	ticker         *time.Ticker
}

func NewWithdraw(cfg *config.Config, db *database.DB, rpcClient *rpcclient.CeloClient, shutdown context.CancelCauseFunc) (*Withdraw, error) {
	resCtx, resCancel := context.WithCancel(context.Background())
	return &Withdraw{
		rpcClient:      rpcClient,
		db:             db,
		resourceCtx:    resCtx,
		resourceCancel: resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			shutdown(fmt.Errorf("critical error in withdraw: %w", err))
		}},
		ticker: time.NewTicker(cfg.ChainNode.WorkerInterval),
	}, nil
}

func (w *Withdraw) Start() error {
	log.Info("starting withdraw....")
	w.tasks.Go(func() error {
		for {
			select {
			case <-w.ticker.C:
				businessList, err := w.db.Business.QueryBusinessList()
				if err != nil {
					log.Error("failed to query business list", "err", err)
					continue
				}
				for _, business := range businessList {
					unSendTransactionList, err := w.db.Withdraws.UnSendWithdrawsList(business.BusinessUid)
					if err != nil {
						log.Error("failed to query unsend withdraws", "err", err)
						continue
					}
					if len(unSendTransactionList) == 0 {
						continue
					}

					var broadcasted []*database.Withdraws
					for _, unSendTransaction := range unSendTransactionList {
						rawTx, err := hexutil.Decode(unSendTransaction.TxSignHex)
						if err != nil {
							log.Error("invalid signed transaction hex", "guid", unSendTransaction.GUID, "err", err)
							continue
						}
						txHash, err := w.rpcClient.SendRawTransaction(rawTx)
						if err != nil {
							log.Error("failed to send withdraw transaction", "guid", unSendTransaction.GUID, "err", err)
							continue
						}
						unSendTransaction.TxHash = txHash
						unSendTransaction.Status = constant.TxStatusBroadcasted
						broadcasted = append(broadcasted, unSendTransaction)
					}

					if len(broadcasted) == 0 {
						continue
					}
					retryStrategy := &retry.ExponentialStrategy{Min: 1000, Max: 20_000, MaxJitter: 250}
					if _, err := retry.Do[interface{}](w.resourceCtx, 10, retryStrategy, func() (interface{}, error) {
						if err := w.db.Transaction(func(tx *database.DB) error {
							return tx.Withdraws.UpdateWithdrawListById(business.BusinessUid, broadcasted)
						}); err != nil {
							log.Error("update withdraw status fail", "err", err)
							return nil, err
						}
						return nil, nil
					}); err != nil {
						return err
					}
				}
			case <-w.resourceCtx.Done():
				log.Info("stopping withdraw in worker")
				return nil
			}
		}
	})
	return nil
}

func (w *Withdraw) Stop() error {
	var result error
	w.resourceCancel()
	w.ticker.Stop()
	log.Info("stop withdraw......")
	if err := w.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await withdraw %w", err))
		return result
	}
	log.Info("stop withdraw success")
	return nil
}
