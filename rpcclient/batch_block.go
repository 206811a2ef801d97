package rpcclient

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"celo-wallet-service/common/bigint"
)

var (
	ErrBatchBlockAheadOfProvider = errors.New("the BatchBlock's internal state is ahead of the provider")
	ErrBlockFallBack             = errors.New("the block fallback, fallback handle it now")
)

/*批量扫块工具*/
type BatchBlock struct {
	client *CeloClient

	/*链上最新区块*/
	latestHeader *BlockHeader

	/*最后遍历处理的区块*/
	lastTraversedHeader *BlockHeader

	/*确认位*/
	blockConfirmationDepth *big.Int
}

func NewBatchBlock(client *CeloClient, fromHeader *BlockHeader, confDepth *big.Int) *BatchBlock {
	return &BatchBlock{
		client:                 client,
		lastTraversedHeader:    fromHeader,
		blockConfirmationDepth: confDepth,
	}
}

func (f *BatchBlock) LatestHeader() *BlockHeader {
	return f.latestHeader
}

func (f *BatchBlock) LastTraversedHeader() *BlockHeader {
	return f.lastTraversedHeader
}

/*
批量获取链上区块头
[]BlockHeader 获取到的区块头切片
*BlockHeader 发现回滚时的区块
bool	属于链重组
error	出错
*/
func (f *BatchBlock) NextHeaders(maxSize uint64) ([]BlockHeader, *BlockHeader, bool, error) {
	latestHeader, err := f.client.GetBlockHeader(nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("error getting latest block header: %w", err)
	} else if latestHeader == nil {
		return nil, nil, false, fmt.Errorf("latest header unreported")
	} else {
		f.latestHeader = latestHeader
	}

	/*已确认的同步终点 endHeight = latest - confirmationDepth，终点以内的块视为不可回滚*/
	endHeight := new(big.Int).Sub(latestHeader.Number, f.blockConfirmationDepth)
	if endHeight.Sign() < 0 {
		/*链高还没到确认深度，无须同步*/
		return nil, nil, false, nil
	}
	if f.lastTraversedHeader != nil {
		cmp := f.lastTraversedHeader.Number.Cmp(endHeight)
		if cmp == 0 {
			return nil, nil, false, nil
		} else if cmp > 0 {
			return nil, nil, false, ErrBatchBlockAheadOfProvider
		}
	}
	nextHeight := bigint.Zero
	if f.lastTraversedHeader != nil {
		nextHeight = new(big.Int).Add(f.lastTraversedHeader.Number, bigint.One)
	}
	endHeight = bigint.Clamp(nextHeight, endHeight, maxSize)
	count := new(big.Int).Sub(endHeight, nextHeight).Uint64() + 1

	var headers []BlockHeader
	for i := uint64(0); i < count; i++ {
		height := new(big.Int).Add(nextHeight, new(big.Int).SetUint64(i))
		blockHeader, err := f.client.GetBlockHeader(height)
		if err != nil {
			log.Error("get block info fail", "height", height, "err", err)
			return nil, nil, false, err
		}
		headers = append(headers, *blockHeader)
		/*首个头与最后遍历的头不衔接，说明链重组，触发 fallback*/
		if len(headers) == 1 && f.lastTraversedHeader != nil && headers[0].ParentHash != f.lastTraversedHeader.Hash {
			log.Warn("lastTraversedHeader mismatch", "parentHash", headers[0].ParentHash, "hash", f.lastTraversedHeader.Hash)
			return nil, blockHeader, true, ErrBlockFallBack
		}
		/*批内相邻头不衔接同样视为重组*/
		if len(headers) > 1 && headers[i-1].Hash != headers[i].ParentHash {
			log.Warn("headers discontinuous", "parentHash", headers[i].ParentHash, "hash", headers[i-1].Hash)
			return nil, blockHeader, true, ErrBlockFallBack
		}
	}

	numHeaders := len(headers)
	if numHeaders == 0 {
		return nil, nil, false, nil
	}
	f.lastTraversedHeader = &headers[numHeaders-1]
	return headers, nil, false, nil
}
