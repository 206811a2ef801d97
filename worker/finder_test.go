package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"celo-wallet-service/common/tasks"
)

/*同步器停机关闭 businessChannels 后，发现器应正常退出而不是空转报错*/
func TestFinderExitOnChannelClose(t *testing.T) {
	resCtx, resCancel := context.WithCancel(context.Background())
	defer resCancel()

	syncer := &BaseSynchronizer{
		businessChannels: make(chan map[string]*BatchTransactions),
	}
	finder := &Finder{
		BaseSynchronizer: syncer,
		resourceCtx:      resCtx,
		resourceCancel:   resCancel,
		tasks: tasks.Group{HandleCrit: func(err error) {
			t.Errorf("unexpected critical error: %v", err)
		}},
	}

	require.NoError(t, finder.Start())
	close(syncer.businessChannels)
	require.NoError(t, finder.tasks.Wait())
}
