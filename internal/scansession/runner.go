package scansession

import (
	"context"
	"errors"
	"fmt"
	"log"

	"smartscan/internal/decoder"
	"smartscan/internal/metrics"
)

// Start attaches dec and feeds its debounced output into OnDecode until Stop is called or
// ctx ends. If the decoder cannot be acquired the session stays idle and the camera message
// is set. The session lock is not held while the decoder starts, so a slow backend does not
// stall snapshots; a Stop issued meanwhile ends the runner as soon as it launches.
func (s *Session) Start(ctx context.Context, dec decoder.Decoder) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyScanning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	results, err := dec.Start(runCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		cancel()
		if s.done == done {
			s.cancel = nil
			s.done = nil
		}
		close(done)
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			s.errMsg = MsgCameraBlocked
		}
		log.Printf("start decoder: %v", err)
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	s.errMsg = ""

	go s.run(runCtx, dec, results, done)
	log.Printf("scan session started")
	return nil
}

func (s *Session) run(ctx context.Context, dec decoder.Decoder, results <-chan decoder.Result, done chan struct{}) {
	deb := NewDebouncer(s.debounce, func(payload string) {
		s.OnDecode(ctx, payload)
	})
	defer func() {
		deb.Stop()
		if err := dec.Stop(); err != nil {
			log.Printf("stop decoder: %v", err)
		}
		s.mu.Lock()
		if s.done == done {
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
		close(done)
		log.Printf("scan session stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if res.Err != nil {
				// frames without a readable code are expected between scans
				metrics.DecodeEvents.WithLabelValues("noise").Inc()
				continue
			}
			metrics.DecodeEvents.WithLabelValues("payload").Inc()
			deb.Call(res.Payload)
		}
	}
}

// Stop detaches the decoder and waits for the runner to release it. Pending debounced
// payloads are dropped. Stopping an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Scanning reports whether a decoder is attached.
func (s *Session) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
