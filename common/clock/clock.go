package clock

import "time"

/*时钟抽象，便于测试替换*/
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	Ch() <-chan time.Time
	Stop()
}

/*真实系统时钟*/
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type systemTicker struct {
	*time.Ticker
}

func (t *systemTicker) Ch() <-chan time.Time {
	return t.C
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{time.NewTicker(d)}
}
