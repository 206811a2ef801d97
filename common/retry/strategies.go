package retry

import (
	"math"
	"math/rand"
	"time"
)

/*重试间隔策略*/
type Strategy interface {
	Duration(attempt int) time.Duration
}

/*
指数退避策略：min(Min * 2^attempt, Max) 再加随机抖动。
字段单位为毫秒。
*/
type ExponentialStrategy struct {
	Min       time.Duration
	Max       time.Duration
	MaxJitter time.Duration
}

func (e *ExponentialStrategy) Duration(attempt int) time.Duration {
	var jitter time.Duration
	if e.MaxJitter > 0 {
		jitter = time.Duration(rand.Int63n(e.MaxJitter.Nanoseconds()))
	}
	if attempt < 0 {
		return e.Min + jitter
	}
	durFloat := float64(e.Min)
	durFloat *= math.Pow(2, float64(attempt))
	dur := time.Duration(durFloat)
	if durFloat > float64(e.Max) {
		dur = e.Max
	}
	dur += jitter
	return dur
}

/*固定间隔策略*/
type FixedStrategy struct {
	Dur time.Duration
}

func (f *FixedStrategy) Duration(attempt int) time.Duration {
	return f.Dur
}

func Exponential() Strategy {
	return &ExponentialStrategy{
		Min:       time.Second,
		Max:       10 * time.Second,
		MaxJitter: 250 * time.Millisecond,
	}
}

func Fixed(dur time.Duration) Strategy {
	return &FixedStrategy{Dur: dur}
}
