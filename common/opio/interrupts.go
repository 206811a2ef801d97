package opio

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

/*默认监听的退出信号*/
var DefaultInterruptSignals = []os.Signal{
	os.Interrupt,
	os.Kill,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

/*阻塞直到收到退出信号或 ctx 结束*/
func BlockOnInterruptsContext(ctx context.Context, signals ...os.Signal) {
	if len(signals) == 0 {
		signals = DefaultInterruptSignals
	}
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, signals...)
	select {
	case <-interruptChannel:
	case <-ctx.Done():
		signal.Stop(interruptChannel)
	}
}

type interruptContextKeyType struct{}

var blockerContextKey = interruptContextKeyType{}

type interruptCatcher struct {
	incoming chan os.Signal
}

/*等待一次信号*/
func (c *interruptCatcher) Block(ctx context.Context) {
	select {
	case <-c.incoming:
	case <-ctx.Done():
	}
}

type BlockFn func(ctx context.Context)

/*
WithInterruptBlocker 向 ctx 附加一个信号拦截器，
后续通过 BlockerFromContext 取出并阻塞等待中断。
重复附加会复用已有的拦截器。
*/
func WithInterruptBlocker(ctx context.Context) context.Context {
	if ctx.Value(blockerContextKey) != nil {
		return ctx
	}
	catcher := &interruptCatcher{
		incoming: make(chan os.Signal, 10),
	}
	signal.Notify(catcher.incoming, DefaultInterruptSignals...)
	return context.WithValue(ctx, blockerContextKey, BlockFn(catcher.Block))
}

/*取出拦截器，没有附加过则退化为直接监听信号*/
func BlockerFromContext(ctx context.Context) BlockFn {
	v := ctx.Value(blockerContextKey)
	if v == nil {
		return func(ctx context.Context) {
			BlockOnInterruptsContext(ctx)
		}
	}
	return v.(BlockFn)
}
