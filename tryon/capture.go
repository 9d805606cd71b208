package tryon

import (
	"log"
	"sync"
	"time"
)

// CaptureStatus is the countdown state.
type CaptureStatus string

const (
	CaptureIdle     CaptureStatus = "idle"
	CaptureCounting CaptureStatus = "counting"
)

// Capturer runs the snapshot countdown. The countdown is cancellable up to
// its last tick; on expiry the injected snapshot function serializes the
// current surface. A snapshot error leaves the surface unchanged.
type Capturer struct {
	ticks    int
	interval time.Duration

	mu     sync.Mutex
	status CaptureStatus
	cancel chan struct{}
}

func NewCapturer(ticks int, interval time.Duration) *Capturer {
	if ticks <= 0 {
		ticks = 5
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Capturer{
		ticks:    ticks,
		interval: interval,
		status:   CaptureIdle,
	}
}

func (c *Capturer) Status() CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Start begins the countdown. onTick observes each remaining-tick value for
// UI display; snapshot runs after the final tick; onDone receives the
// snapshot error, nil on success, or nothing at all when cancelled.
func (c *Capturer) Start(onTick func(remaining int), snapshot func() error, onDone func(error)) error {
	c.mu.Lock()
	if c.status == CaptureCounting {
		c.mu.Unlock()
		return ErrCaptureInProgress
	}
	c.status = CaptureCounting
	c.cancel = make(chan struct{})
	cancel := c.cancel
	c.mu.Unlock()

	go c.run(cancel, onTick, snapshot, onDone)
	return nil
}

// Cancel aborts a running countdown with no side effect. Cancelling an idle
// capturer is a no-op.
func (c *Capturer) Cancel() {
	c.mu.Lock()
	if c.status == CaptureCounting && c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
	c.mu.Unlock()
}

func (c *Capturer) run(cancel chan struct{}, onTick func(int), snapshot func() error, onDone func(error)) {
	defer func() {
		c.mu.Lock()
		c.status = CaptureIdle
		c.cancel = nil
		c.mu.Unlock()
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for remaining := c.ticks; remaining > 0; remaining-- {
		if onTick != nil {
			onTick(remaining)
		}
		select {
		case <-ticker.C:
		case <-cancel:
			log.Printf("capture: countdown cancelled with %d tick(s) remaining", remaining)
			return
		}
	}

	err := snapshot()
	if err != nil {
		log.Printf("capture: snapshot failed: %v", err)
	}
	if onDone != nil {
		onDone(err)
	}
}
