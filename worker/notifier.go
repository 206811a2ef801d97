package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"celo-wallet-service/common/retry"
	"celo-wallet-service/common/tasks"
	"celo-wallet-service/database"
	"celo-wallet-service/database/constant"
	"celo-wallet-service/httpclient"
)

/*通知任务：把已确认的充值、提现、内部交易回调给项目方*/
type Notifier struct {
	db          *database.DB
	businessIds []string
	/*每个项目方一个专用回调客户端*/
	notifier       map[string]*httpclient.NotifyClient
	resourceCtx    context.Context
	resourceCancel context.CancelFunc
	tasks          tasks.Group
	ticker         *time.Ticker
}

func NewNotifier(db *database.DB, shutdown context.CancelCauseFunc) (*Notifier, error) {
	businessList, err := db.Business.QueryBusinessList()
	if err != nil {
		log.Error("query business list error", "err", err)
		return nil, err
	}
	var businessIds []string
	notifierClients := make(map[string]*httpclient.NotifyClient)

	for _, business := range businessList {
		businessIds = append(businessIds, business.BusinessUid)
		client, err := httpclient.NewNotifyClient(business.NotifyUrl)
		if err != nil {
			log.Error("create notifier client error", "businessId", business.BusinessUid, "err", err)
			return nil, err
		}
		notifierClients[business.BusinessUid] = client
	}

	resCtx, resCancel := context.WithCancel(context.Background())

	return &Notifier{
		db:             db,
		notifier:       notifierClients,
		businessIds:    businessIds,
		resourceCtx:    resCtx,
		resourceCancel: resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			shutdown(fmt.Errorf("critical error in notifier: %w", err))
		}},
		ticker: time.NewTicker(5 * time.Second),
	}, nil
}

func (nf *Notifier) Start() error {
	log.Info("start notifier worker...")
	nf.tasks.Go(func() error {
		for {
			select {
			case <-nf.ticker.C:
				for _, businessId := range nf.businessIds {
					needNotifyDeposits, err := nf.db.Deposits.QueryNotifyDeposits(businessId)
					if err != nil {
						log.Error("query notify deposits fail", "err", err)
						return err
					}
					needNotifyWithdraws, err := nf.db.Withdraws.QueryWithdrawsByStatus(businessId, constant.TxStatusConfirmed)
					if err != nil {
						log.Error("query notify withdraws fail", "err", err)
						return err
					}
					needNotifyInternals, err := nf.db.Internals.QueryNotifyInternals(businessId)
					if err != nil {
						log.Error("query notify internals fail", "err", err)
						return err
					}
					if len(needNotifyDeposits) == 0 && len(needNotifyWithdraws) == 0 && len(needNotifyInternals) == 0 {
						continue
					}

					notifyRequest := nf.BuildNotifyTransaction(needNotifyDeposits, needNotifyWithdraws, needNotifyInternals)
					success, err := nf.notifier[businessId].BusinessNotify(notifyRequest)
					if err != nil {
						log.Error("notify business platform fail", "businessId", businessId, "err", err)
						continue
					}
					if !success {
						/*项目方没确认收到，下一轮重发*/
						log.Warn("business platform rejected notify", "businessId", businessId)
						continue
					}
					if err := nf.markNotified(businessId, needNotifyDeposits, needNotifyWithdraws, needNotifyInternals); err != nil {
						log.Error("mark notified fail", "err", err)
						return err
					}
				}
			case <-nf.resourceCtx.Done():
				log.Info("notifier worker shutting down")
				return nil
			}
		}
	})
	return nil
}

func (nf *Notifier) Stop() error {
	var result error
	nf.resourceCancel()
	nf.ticker.Stop()
	if err := nf.tasks.Wait(); err != nil {
		result = errors.Join(result, fmt.Errorf("failed to await notify %w", err))
		return result
	}
	log.Info("stop notify success")
	return nil
}

/*通知成功后统一置为 notified*/
func (nf *Notifier) markNotified(businessId string, deposits []*database.Deposits, withdraws []*database.Withdraws, internals []*database.Internals) error {
	retryStrategy := &retry.ExponentialStrategy{Min: 1000, Max: 20_000, MaxJitter: 250}
	if _, err := retry.Do[interface{}](nf.resourceCtx, 10, retryStrategy, func() (interface{}, error) {
		if err := nf.db.Transaction(func(tx *database.DB) error {
			for _, deposit := range deposits {
				if err := tx.Deposits.UpdateDepositsStatusByTxHash(businessId, deposit.TxHash, constant.TxStatusNotified); err != nil {
					return err
				}
			}
			for _, withdraw := range withdraws {
				if err := tx.Withdraws.UpdateWithdrawStatusByTxHash(businessId, withdraw.TxHash, constant.TxStatusNotified, nil); err != nil {
					return err
				}
			}
			for _, internal := range internals {
				if err := tx.Internals.UpdateInternalStatusByTxHash(businessId, internal.TxHash, constant.TxStatusNotified, nil); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			log.Error("unable to persist notify status", "err", err)
			return nil, err
		}
		return nil, nil
	}); err != nil {
		return err
	}
	return nil
}

/*构建充值、提现、内部交易的通知请求*/
func (nf *Notifier) BuildNotifyTransaction(deposits []*database.Deposits, withdraws []*database.Withdraws, internals []*database.Internals) *httpclient.NotifyRequest {
	var notifyTransactions []*httpclient.Transaction
	for _, deposit := range deposits {
		notifyTransactions = append(notifyTransactions, &httpclient.Transaction{
			BlockHash:    deposit.BlockHash.String(),
			BlockNumber:  deposit.BlockNumber.Uint64(),
			Hash:         deposit.TxHash.String(),
			FromAddress:  deposit.FromAddress.String(),
			ToAddress:    deposit.ToAddress.String(),
			Value:        deposit.Amount.String(),
			Fee:          deposit.MaxFeePerGas,
			FeeCurrency:  feeCurrencyNotifyString(deposit.FeeCurrency),
			TxType:       deposit.TxType,
			Confirms:     deposit.Confirms,
			TokenAddress: deposit.TokenAddress.String(),
		})
	}

	for _, withdraw := range withdraws {
		notifyTransactions = append(notifyTransactions, &httpclient.Transaction{
			BlockHash:    withdraw.BlockHash.String(),
			BlockNumber:  withdraw.BlockNumber.Uint64(),
			Hash:         withdraw.TxHash.String(),
			FromAddress:  withdraw.FromAddress.String(),
			ToAddress:    withdraw.ToAddress.String(),
			Value:        withdraw.Amount.String(),
			Fee:          withdraw.MaxFeePerGas,
			FeeCurrency:  feeCurrencyNotifyString(withdraw.FeeCurrency),
			TxType:       withdraw.TxType,
			Confirms:     0,
			TokenAddress: withdraw.TokenAddress.String(),
		})
	}

	for _, internal := range internals {
		notifyTransactions = append(notifyTransactions, &httpclient.Transaction{
			BlockHash:    internal.BlockHash.String(),
			BlockNumber:  internal.BlockNumber.Uint64(),
			Hash:         internal.TxHash.String(),
			FromAddress:  internal.FromAddress.String(),
			ToAddress:    internal.ToAddress.String(),
			Value:        internal.Amount.String(),
			Fee:          internal.MaxFeePerGas,
			FeeCurrency:  feeCurrencyNotifyString(internal.FeeCurrency),
			TxType:       internal.TxType,
			Confirms:     0,
			TokenAddress: internal.TokenAddress.String(),
		})
	}
	return &httpclient.NotifyRequest{
		Txn: notifyTransactions,
	}
}

/*零地址表示原生 CELO 付费，回调里用空串*/
func feeCurrencyNotifyString(feeCurrency common.Address) string {
	if feeCurrency == (common.Address{}) {
		return ""
	}
	return feeCurrency.String()
}
