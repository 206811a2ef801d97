package rpcclient

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*进程内的 eth 命名空间桩，按高度返回可替换的区块头*/
type mockEthBackend struct {
	mu      sync.Mutex
	headers map[string]*rpcHeader
}

func newMockEthBackend() *mockEthBackend {
	return &mockEthBackend{headers: make(map[string]*rpcHeader)}
}

func (b *mockEthBackend) setHeader(number string, header *rpcHeader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.headers[number] = header
}

func (b *mockEthBackend) GetBlockByNumber(number string, fullTx bool) (*rpcHeader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[number], nil
}

func newTestCeloClient(t *testing.T, backend *mockEthBackend) *CeloClient {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", backend))
	t.Cleanup(server.Stop)

	client, err := newCeloClient(context.Background(), rpc.DialInProc(server))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestGetBlockHeaderCacheByNumber(t *testing.T) {
	backend := newMockEthBackend()
	client := newTestCeloClient(t, backend)

	number := big.NewInt(100)
	backend.setHeader("0x64", &rpcHeader{
		Hash:       common.HexToHash("0x11"),
		ParentHash: common.HexToHash("0x10"),
		Number:     (*hexutil.Big)(number),
		Timestamp:  hexutil.Uint64(1000),
	})

	header, err := client.GetBlockHeader(number)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x11"), header.Hash)
	assert.Equal(t, uint64(100), header.Number.Uint64())
	/*ristretto 写缓存是异步的，等生效后再验证命中*/
	client.headerCache.Wait()

	_, ok := client.headerCache.Get("0x64")
	assert.True(t, ok)
}

/*
链重组场景：同一高度先后返回不同的头。
清缓存前命中旧头，清缓存后必须读到新分叉的头。
*/
func TestPurgeHeaderCacheAfterReorg(t *testing.T) {
	backend := newMockEthBackend()
	client := newTestCeloClient(t, backend)

	number := big.NewInt(100)
	backend.setHeader("0x64", &rpcHeader{
		Hash:       common.HexToHash("0x11"),
		ParentHash: common.HexToHash("0x10"),
		Number:     (*hexutil.Big)(number),
		Timestamp:  hexutil.Uint64(1000),
	})

	header, err := client.GetBlockHeader(number)
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x11"), header.Hash)
	client.headerCache.Wait()

	/*发生重组，同一高度换上新头*/
	backend.setHeader("0x64", &rpcHeader{
		Hash:       common.HexToHash("0x22"),
		ParentHash: common.HexToHash("0x20"),
		Number:     (*hexutil.Big)(number),
		Timestamp:  hexutil.Uint64(1003),
	})

	header, err = client.GetBlockHeader(number)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x11"), header.Hash)

	client.PurgeHeaderCache()

	header, err = client.GetBlockHeader(number)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x22"), header.Hash)
}
