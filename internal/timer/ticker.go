package timer

import (
	"time"

	"clockko/focus/internal/metrics"
)

type realTicker struct {
	ticker *time.Ticker
}

func newRealTicker(interval time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(interval)}
}

func (r *realTicker) C() <-chan time.Time { return r.ticker.C }
func (r *realTicker) Stop()               { r.ticker.Stop() }

// startTickerLocked replaces any running countdown with a fresh one. Each
// countdown carries a generation so ticks from a replaced one are ignored.
func (t *Timer) startTickerLocked() {
	t.stopTickerLocked()
	t.tickGen++
	gen := t.tickGen
	ticker := t.cfg.NewTicker(t.cfg.TickInterval)
	stop := make(chan struct{})
	t.ticker = ticker
	t.tickStop = stop
	go t.run(ticker, stop, gen)
}

func (t *Timer) stopTickerLocked() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.tickStop)
	t.ticker = nil
	t.tickStop = nil
	t.tickGen++
}

func (t *Timer) run(ticker Ticker, stop <-chan struct{}, gen uint64) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.tick(gen)
		}
	}
}

// tick advances the countdown by one step and hands off to completion when
// it reaches zero. Completion is started at most once per phase.
func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.tickGen || !t.state.IsRunning || t.completing {
		t.mu.Unlock()
		return
	}

	metrics.TimerTicks.Inc()
	if t.state.TimeLeftSeconds > 0 {
		t.state.TimeLeftSeconds--
		t.emitLocked()
	}
	if t.state.TimeLeftSeconds > 0 {
		t.mu.Unlock()
		return
	}

	t.completing = true
	t.stopTickerLocked()
	t.mu.Unlock()

	t.complete()
}
