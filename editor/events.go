package editor

import (
	"context"
	"sync"
)

// dispatcher delivers validation changes in order on its own goroutine, so
// that callbacks never run under the session lock.
type dispatcher struct {
	mu      sync.Mutex
	fn      func(bool)
	queue   []bool
	running bool
	idle    chan struct{}
}

func (d *dispatcher) push(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fn == nil {
		return
	}
	d.queue = append(d.queue, v)
	if d.running {
		return
	}
	d.running = true
	d.idle = make(chan struct{})
	go d.drain(d.idle)
}

func (d *dispatcher) drain(idle chan struct{}) {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.mu.Unlock()
			close(idle)
			return
		}
		v := d.queue[0]
		d.queue = d.queue[1:]
		fn := d.fn
		d.mu.Unlock()
		fn(v)
	}
}

// wait blocks until every queued change has been delivered.
func (d *dispatcher) wait(ctx context.Context) error {
	for {
		d.mu.Lock()
		if !d.running {
			d.mu.Unlock()
			return nil
		}
		idle := d.idle
		d.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}
