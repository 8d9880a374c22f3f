// Package decoder turns a live input into a stream of decoded QR payloads.
package decoder

import (
	"context"
	"errors"
)

// ErrBusy is returned by Start when the decoder is already running.
var ErrBusy = errors.New("decoder already started")

// ErrNotStarted is returned when feeding a decoder that is not running.
var ErrNotStarted = errors.New("decoder not started")

// Result is a single decode attempt: a payload or a decode failure.
type Result struct {
	Payload string
	Err     error
}

// Decoder is a start/stop controlled source of decode results. The returned channel is
// closed once the decoder stops. A decoder cannot be started twice concurrently.
type Decoder interface {
	Start(ctx context.Context) (<-chan Result, error)
	Stop() error
}
