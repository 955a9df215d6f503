package room

import (
	"sync"
	"time"
)

// TurnTimer is the per-game move deadline. Only the deadline comparison
// decides correctness; ticks exist purely for client display.
//
// Every arm (Start/Reset/Resume) bumps a generation counter and the
// fire callback carries the generation it was armed with. A fire racing
// a concurrent move or pause loses: by the time it acquires the room
// lock the generation has moved on and the handler no-ops.
type TurnTimer struct {
	mu       sync.Mutex
	duration time.Duration
	deadline time.Time
	gen      uint64
	fire     *time.Timer
	tickStop chan struct{}
	running  bool

	onFire func(gen uint64)
	onTick func(remaining int)
}

func NewTurnTimer(duration time.Duration, onFire func(gen uint64), onTick func(remaining int)) *TurnTimer {
	return &TurnTimer{
		duration: duration,
		onFire:   onFire,
		onTick:   onTick,
	}
}

// Start arms the timer with the full turn duration.
func (t *TurnTimer) Start() {
	t.arm(t.duration)
}

// Reset re-arms with a fresh full duration (valid move accepted).
func (t *TurnTimer) Reset() {
	t.arm(t.duration)
}

// Resume re-arms with the remaining time captured at pause.
func (t *TurnTimer) Resume(remaining time.Duration) {
	if remaining <= 0 {
		remaining = time.Second
	}
	t.arm(remaining)
}

func (t *TurnTimer) arm(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.deadline = time.Now().Add(d)
	t.running = true
	t.fire = time.AfterFunc(d, func() { t.fired(gen) })

	stop := make(chan struct{})
	t.tickStop = stop
	go t.tickLoop(gen, stop)
}

func (t *TurnTimer) fired(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.running = false
	if t.tickStop != nil {
		close(t.tickStop)
		t.tickStop = nil
	}
	t.mu.Unlock()

	t.onFire(gen)
}

// tickLoop emits a display update roughly once per second. Late or lost
// ticks never affect correctness.
func (t *TurnTimer) tickLoop(gen uint64, stop chan struct{}) {
	if t.onTick != nil {
		t.onTick(t.Remaining())
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			stale := gen != t.gen || !t.running
			t.mu.Unlock()
			if stale {
				return
			}
			if t.onTick != nil {
				t.onTick(t.Remaining())
			}
		}
	}
}

// Pause cancels the deadline and returns the time that was left.
func (t *TurnTimer) Pause() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := time.Duration(0)
	if t.running {
		remaining = time.Until(t.deadline)
		if remaining < 0 {
			remaining = 0
		}
	}
	t.stopLocked()
	t.gen++
	return remaining
}

// Stop cancels the timer entirely (game over, room teardown).
func (t *TurnTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
}

func (t *TurnTimer) stopLocked() {
	if t.fire != nil {
		t.fire.Stop()
		t.fire = nil
	}
	if t.tickStop != nil {
		close(t.tickStop)
		t.tickStop = nil
	}
	t.running = false
}

// Gen reports the current arm generation.
func (t *TurnTimer) Gen() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

func (t *TurnTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Remaining reports whole seconds left on the current deadline.
func (t *TurnTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	remaining := time.Until(t.deadline)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Round(time.Second) / time.Second)
}
