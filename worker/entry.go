package worker

import (
	"context"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"celo-wallet-service/config"
	"celo-wallet-service/database"
	"celo-wallet-service/rpcclient"
)

/*后台任务集合：同步器 + 提现 + 内部交易 + 回滚 + 通知*/
type WorkerEntry struct {
	BaseSynchronizer *BaseSynchronizer
	Finder           *Finder
	Withdraw         *Withdraw
	Internal         *Internal
	Fallback         *Fallback
	Notifier         *Notifier

	shutdown context.CancelCauseFunc
	stopped  atomic.Bool
}

func NewAllWorker(ctx context.Context, cfg *config.Config, shutdown context.CancelCauseFunc) (*WorkerEntry, error) {
	db, err := database.NewDB(ctx, cfg.MasterDB)
	if err != nil {
		log.Error("failed to connect to master database", "err", err)
		return nil, err
	}
	rpcClient, err := rpcclient.NewCeloClient(ctx, cfg.ChainNode.RpcUrl)
	if err != nil {
		log.Error("failed to connect to celo node", "err", err)
		return nil, err
	}

	synchronizer, err := NewSynchronizer(cfg, db, rpcClient, shutdown)
	if err != nil {
		log.Error("failed to create synchronizer", "err", err)
		return nil, err
	}
	finder, err := NewFinder(synchronizer, cfg, shutdown)
	if err != nil {
		log.Error("failed to create finder", "err", err)
		return nil, err
	}
	withdraw, err := NewWithdraw(cfg, db, rpcClient, shutdown)
	if err != nil {
		log.Error("failed to create withdraw worker", "err", err)
		return nil, err
	}
	internal, err := NewInternal(cfg, db, rpcClient, shutdown)
	if err != nil {
		log.Error("failed to create internal worker", "err", err)
		return nil, err
	}
	fallback, err := NewFallback(cfg, db, rpcClient, synchronizer, shutdown)
	if err != nil {
		log.Error("failed to create fallback worker", "err", err)
		return nil, err
	}
	notifier, err := NewNotifier(db, shutdown)
	if err != nil {
		log.Error("failed to create notifier", "err", err)
		return nil, err
	}

	return &WorkerEntry{
		BaseSynchronizer: synchronizer,
		Finder:           finder,
		Withdraw:         withdraw,
		Internal:         internal,
		Fallback:         fallback,
		Notifier:         notifier,
		shutdown:         shutdown,
	}, nil
}

func (w *WorkerEntry) Start(ctx context.Context) error {
	if err := w.BaseSynchronizer.Start(); err != nil {
		log.Error("failed to start base-synchronizer", "err", err)
		return err
	}
	if err := w.Finder.Start(); err != nil {
		log.Error("failed to start finder", "err", err)
		return err
	}
	if err := w.Withdraw.Start(); err != nil {
		log.Error("failed to start withdraw worker", "err", err)
		return err
	}
	if err := w.Internal.Start(); err != nil {
		log.Error("failed to start internal worker", "err", err)
		return err
	}
	if err := w.Fallback.Start(); err != nil {
		log.Error("failed to start fallback worker", "err", err)
		return err
	}
	if err := w.Notifier.Start(); err != nil {
		log.Error("failed to start notifier", "err", err)
		return err
	}
	return nil
}

func (w *WorkerEntry) Stop(ctx context.Context) error {
	if err := w.BaseSynchronizer.Stop(); err != nil {
		log.Error("failed to stop base-synchronizer", "err", err)
		return err
	}
	if err := w.Finder.Stop(); err != nil {
		log.Error("failed to stop finder", "err", err)
		return err
	}
	if err := w.Withdraw.Stop(); err != nil {
		log.Error("failed to stop withdraw worker", "err", err)
		return err
	}
	if err := w.Internal.Stop(); err != nil {
		log.Error("failed to stop internal worker", "err", err)
		return err
	}
	if err := w.Fallback.Stop(); err != nil {
		log.Error("failed to stop fallback worker", "err", err)
		return err
	}
	if err := w.Notifier.Stop(); err != nil {
		log.Error("failed to stop notifier", "err", err)
		return err
	}
	w.stopped.Store(true)
	return nil
}

func (w *WorkerEntry) Stopped() bool {
	return w.stopped.Load()
}
