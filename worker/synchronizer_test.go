package worker

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"celo-wallet-service/rpcclient"
)

/*回滚状态在同步协程与回滚协程之间的交接*/
func TestFallbackStateHandoff(t *testing.T) {
	syncer := &BaseSynchronizer{}

	require.True(t, syncer.markFallback(&rpcclient.BlockHeader{Number: big.NewInt(100)}))
	/*已处于回滚状态时重复标记被忽略，不覆盖回滚点*/
	require.False(t, syncer.markFallback(&rpcclient.BlockHeader{Number: big.NewInt(99)}))

	fallbackBlockHeader, isFallback := syncer.fallbackState()
	require.True(t, isFallback)
	assert.Equal(t, uint64(100), fallbackBlockHeader.Number.Uint64())

	blockBatch := rpcclient.NewBatchBlock(nil, nil, big.NewInt(16))
	syncer.resumeFromFallback(blockBatch)

	fallbackBlockHeader, isFallback = syncer.fallbackState()
	assert.False(t, isFallback)
	assert.Nil(t, fallbackBlockHeader)
	assert.Same(t, blockBatch, syncer.blockBatch)
}

/*两个协程并发读写回滚状态与扫块工具，-race 下必须干净*/
func TestFallbackStateConcurrentAccess(t *testing.T) {
	syncer := &BaseSynchronizer{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			syncer.markFallback(&rpcclient.BlockHeader{Number: big.NewInt(int64(i))})
			syncer.fallbackState()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, isFallback := syncer.fallbackState(); isFallback {
				syncer.resumeFromFallback(rpcclient.NewBatchBlock(nil, nil, big.NewInt(16)))
			}
		}
	}()
	wg.Wait()
}
