// Package nope implements the rolling veto window that guards a played card set.
package nope

import (
	"errors"
	"sync"
	"time"
)

// State of a Window.
type State int

const (
	Idle State = iota
	Armed
	Expired
	Cancelled
)

var stateStr = [...]string{"idle", "armed", "expired", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateStr) {
		return "unknown"
	}
	return stateStr[s]
}

var (
	ErrArmed    = errors.New("window already armed")
	ErrNotArmed = errors.New("window was never armed")
	ErrClosed   = errors.New("window cancelled")
)

// Window is an armed timer. Expiry runs onExpire exactly once per arming;
// a callback from a superseded arming is dropped.
type Window struct {
	mu       sync.Mutex
	clock    Clock
	d        time.Duration
	onExpire func()
	timer    Timer
	state    State
	gen      uint64
	arms     int
}

func NewWindow(c Clock) *Window {
	if c == nil {
		c = RealClock{}
	}
	return &Window{clock: c}
}

// Arm starts the window for d.
func (w *Window) Arm(d time.Duration, onExpire func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case Armed:
		return ErrArmed
	case Cancelled:
		return ErrClosed
	}
	w.d = d
	w.onExpire = onExpire
	w.startLocked()
	return nil
}

// Rearm restarts a full-length window with the armed callback.
func (w *Window) Rearm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case Idle:
		return ErrNotArmed
	case Cancelled:
		return ErrClosed
	case Armed:
		w.timer.Stop()
	}
	w.startLocked()
	return nil
}

func (w *Window) startLocked() {
	w.gen++
	w.arms++
	gen := w.gen
	w.state = Armed
	w.timer = w.clock.AfterFunc(w.d, func() { w.expire(gen) })
}

func (w *Window) expire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.state != Armed {
		w.mu.Unlock()
		return
	}
	w.state = Expired
	f := w.onExpire
	w.mu.Unlock()
	if f != nil {
		f()
	}
}

// Fire expires an armed window immediately.
func (w *Window) Fire() bool {
	w.mu.Lock()
	if w.state != Armed {
		w.mu.Unlock()
		return false
	}
	w.timer.Stop()
	gen := w.gen
	w.mu.Unlock()
	w.expire(gen)
	return true
}

// Cancel stops the window for good.
func (w *Window) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Cancelled {
		return false
	}
	if w.state == Armed {
		w.timer.Stop()
	}
	w.gen++
	w.state = Cancelled
	return true
}

func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Arms counts how many times the window has been started.
func (w *Window) Arms() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.arms
}

// Outcome of a closed window.
type Outcome int

const (
	Applied Outcome = iota
	Vetoed
)

func (o Outcome) String() string {
	if o == Vetoed {
		return "vetoed"
	}
	return "applied"
}

// Decide applies the effect after an even number of nopes.
func Decide(nopeAmount int) Outcome {
	if nopeAmount%2 == 0 {
		return Applied
	}
	return Vetoed
}
