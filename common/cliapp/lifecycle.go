package cliapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"celo-wallet-service/common/opio"
)

/*
长生命周期服务的统一抽象：
cli 命令启动后 Start，收到中断或内部致命错误后 Stop。
*/
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stopped() bool
}

/*由 cli 上下文构造服务实例，closeApp 用于服务内部主动触发退出*/
type LifecycleAction func(ctx *cli.Context, closeApp context.CancelCauseFunc) (Lifecycle, error)

var interruptErr = errors.New("interrupt signal")

/*
LifecycleCmd 把 Lifecycle 服务包装成 cli 的 Action：
构造 -> Start -> 等待中断或内部退出 -> Stop。
*/
func LifecycleCmd(fn LifecycleAction) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx := ctx.Context
		blocker := opio.BlockerFromContext(hostCtx)

		appCtx, appCancel := context.WithCancelCause(hostCtx)
		ctx.Context = appCtx
		go func() {
			blocker(appCtx)
			appCancel(interruptErr)
		}()

		appLifecycle, err := fn(ctx, appCancel)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to setup: %w", err), context.Cause(appCtx))
		}

		if err := appLifecycle.Start(appCtx); err != nil {
			return errors.Join(fmt.Errorf("failed to start: %w", err), context.Cause(appCtx))
		}

		/*阻塞到中断信号或内部 closeApp*/
		<-appCtx.Done()

		stopCtx, stopCancel := context.WithCancelCause(hostCtx)
		go func() {
			blocker(stopCtx)
			stopCancel(interruptErr)
		}()

		stopErr := appLifecycle.Stop(stopCtx)
		stopCancel(nil)
		if stopErr != nil {
			return errors.Join(fmt.Errorf("failed to stop: %w", stopErr), context.Cause(appCtx))
		}
		return nil
	}
}
