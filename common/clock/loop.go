package clock

import (
	"context"
	"sync"
	"time"
)

/*
LoopFn 按固定间隔在独立协程里执行 fn，
Close 时停止定时器并回调 onClose。
*/
type LoopFn struct {
	ctx    context.Context
	cancel context.CancelFunc

	ticker  Ticker
	fn      func(ctx context.Context)
	onClose func() error

	wg sync.WaitGroup
}

/*新建并立刻启动循环任务，onClose 可以为 nil*/
func NewLoopFn(clock Clock, fn func(ctx context.Context), onClose func() error, interval time.Duration) *LoopFn {
	ctx, cancel := context.WithCancel(context.Background())
	lf := &LoopFn{
		ctx:     ctx,
		cancel:  cancel,
		ticker:  clock.NewTicker(interval),
		fn:      fn,
		onClose: onClose,
	}
	lf.wg.Add(1)
	go lf.work()
	return lf
}

func (lf *LoopFn) work() {
	defer lf.wg.Done()
	for {
		select {
		case <-lf.ctx.Done():
			return
		case <-lf.ticker.Ch():
			lf.fn(lf.ctx)
		}
	}
}

/*停止循环，等待当前一轮执行结束*/
func (lf *LoopFn) Close() error {
	lf.cancel()
	lf.ticker.Stop()
	lf.wg.Wait()
	if lf.onClose != nil {
		return lf.onClose()
	}
	return nil
}
