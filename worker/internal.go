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

/*内部交易定时任务：归集、热转冷、冷转热的广播*/
type Internal struct {
	rpcClient      *rpcclient.CeloClient
	db             *database.DB
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group
	ticker         *time.Ticker
}

func NewInternal(cfg *config.Config, db *database.DB, rpcClient *rpcclient.CeloClient, shutdown context.CancelCauseFunc) (*Internal, error) {
	resCtx, resCancel := context.WithCancel(context.Background())
	return &Internal{
		rpcClient:      rpcClient,
		db:             db,
		resourceCtx:    resCtx,
		resourceCancel: resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			shutdown(fmt.Errorf("internal crit error: %w", err))
		}},
		ticker: time.NewTicker(cfg.ChainNode.WorkerInterval),
	}, nil
}

func (in *Internal) Start() error {
	log.Info("starting internal worker.......")
	in.tasks.Go(func() error {
		for {
			select {
			case <-in.ticker.C:
				businessList, err := in.db.Business.QueryBusinessList()
				if err != nil {
					log.Error("failed to query business list", "err", err)
					continue
				}
				for _, business := range businessList {
					unSendTransactionList, err := in.db.Internals.UnSendInternalsList(business.BusinessUid)
					if err != nil {
						log.Error("failed to query unsend internals list", "err", err)
						continue
					}
					if len(unSendTransactionList) == 0 {
						continue
					}

					var broadcasted []*database.Internals
					for _, unSendTransaction := range unSendTransactionList {
						rawTx, err := hexutil.Decode(unSendTransaction.TxSignHex)
						if err != nil {
							log.Error("invalid signed transaction hex", "guid", unSendTransaction.GUID, "err", err)
							continue
						}
						txHash, err := in.rpcClient.SendRawTransaction(rawTx)
						if err != nil {
							log.Error("failed to send internal transaction", "guid", unSendTransaction.GUID, "err", err)
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
					if _, err := retry.Do[interface{}](in.resourceCtx, 10, retryStrategy, func() (interface{}, error) {
						if err := in.db.Transaction(func(tx *database.DB) error {
							return tx.Internals.UpdateInternalListById(business.BusinessUid, broadcasted)
						}); err != nil {
							log.Error("update internals status fail", "err", err)
							return nil, err
						}
						return nil, nil
					}); err != nil {
						return err
					}
				}
			case <-in.resourceCtx.Done():
				log.Info("worker is shutting down")
				return nil
			}
		}
	})
	return nil
}

func (in *Internal) Stop() error {
	var result error
	in.resourceCancel()
	in.ticker.Stop()
	log.Info("internal task stopping...")
	if err := in.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await internal %w", err))
		return result
	}
	log.Info("internal task stopped")
	return nil
}
