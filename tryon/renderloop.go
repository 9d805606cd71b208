package tryon

import (
	"sync"
	"time"
)

// RenderLoop coalesces render requests into single-flight execution. A request
// arriving while a render is in flight marks it pending; at most one extra
// render runs after the in-flight one completes. Transform updates on
// low/medium tiers go through the debounced path instead of rendering per
// pointer-move.
type RenderLoop struct {
	render   func()
	interval time.Duration
	realtime bool

	mu        sync.Mutex
	rendering bool
	pending   bool
	timer     *time.Timer
	done      chan struct{} // closed-and-replaced when the flight drains, for tests
}

// NewRenderLoop wires the loop to a render function. realtime selects
// immediate per-update rendering; otherwise debounced requests are coalesced
// at the given interval.
func NewRenderLoop(render func(), interval time.Duration, realtime bool) *RenderLoop {
	if interval <= 0 {
		interval = 150 * time.Millisecond
	}
	return &RenderLoop{
		render:   render,
		interval: interval,
		realtime: realtime,
		done:     make(chan struct{}),
	}
}

// Request schedules a render now, coalescing with any in-flight render.
func (l *RenderLoop) Request() {
	l.mu.Lock()
	if l.rendering {
		l.pending = true
		l.mu.Unlock()
		return
	}
	l.rendering = true
	l.mu.Unlock()
	go l.run()
}

// RequestDebounced schedules a render for a high-frequency update stream. On
// the realtime tier it renders immediately; otherwise successive calls within
// the interval collapse into one render.
func (l *RenderLoop) RequestDebounced() {
	if l.realtime {
		l.Request()
		return
	}
	l.mu.Lock()
	if l.timer != nil {
		l.mu.Unlock()
		return
	}
	l.timer = time.AfterFunc(l.interval, func() {
		l.mu.Lock()
		l.timer = nil
		l.mu.Unlock()
		l.Request()
	})
	l.mu.Unlock()
}

// Flush cancels any pending debounce and forces a render. Called on drag end
// so the displayed frame always matches the final transform.
func (l *RenderLoop) Flush() {
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mu.Unlock()
	l.Request()
}

// Wait blocks until no render is in flight. Intended for tests.
func (l *RenderLoop) Wait() {
	for {
		l.mu.Lock()
		if !l.rendering {
			l.mu.Unlock()
			return
		}
		ch := l.done
		l.mu.Unlock()
		<-ch
	}
}

func (l *RenderLoop) run() {
	for {
		l.render()
		l.mu.Lock()
		if !l.pending {
			l.rendering = false
			close(l.done)
			l.done = make(chan struct{})
			l.mu.Unlock()
			return
		}
		l.pending = false
		l.mu.Unlock()
	}
}
