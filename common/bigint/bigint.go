package bigint

import "math/big"

var (
	Zero = big.NewInt(0)
	One  = big.NewInt(1)
)

/*
Clamp 把 [start, end] 区间裁剪到最多 size 个元素，
返回裁剪后的终点（含）。
*/
func Clamp(start, end *big.Int, size uint64) *big.Int {
	temp := new(big.Int)
	count := temp.Sub(end, start).Uint64() + 1
	if count <= size {
		return end
	}
	temp.Add(start, big.NewInt(int64(size-1)))
	return temp
}

/*区间包含判断，闭区间*/
func WithinRange(num, start, end *big.Int) bool {
	return num.Cmp(start) >= 0 && num.Cmp(end) <= 0
}
