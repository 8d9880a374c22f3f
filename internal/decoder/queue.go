package decoder

import (
	"context"
	"fmt"
	"sync"

	"smartscan/internal/queue"
)

// Queue adapts a message queue of payloads published by external scanners into a Decoder.
type Queue struct {
	q queue.Queue

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue wraps q.
func NewQueue(q queue.Queue) *Queue {
	return &Queue{q: q}
}

// Start subscribes to the queue and forwards scan messages as payloads; other message
// types are skipped. It fails with ErrBusy while a previous subscription is live.
func (d *Queue) Start(ctx context.Context) (<-chan Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return nil, ErrBusy
	}
	cctx, cancel := context.WithCancel(ctx)
	msgs, err := d.q.Consume(cctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("consume scan queue: %w", err)
	}

	out := make(chan Result)
	done := make(chan struct{})
	d.cancel, d.done = cancel, done
	go func() {
		defer close(done)
		defer close(out)
		for msg := range msgs {
			if msg.Type != queue.TypeScan {
				continue
			}
			select {
			case out <- Result{Payload: string(msg.Body)}:
			case <-cctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stop ends the subscription and waits for the forwarder to exit. Stopping twice is a no-op.
func (d *Queue) Stop() error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
