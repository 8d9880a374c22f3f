package decoder

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Live decodes camera frames pushed by the browser (or text it already decoded) while a
// scan session is active. Input faster than maxPerSecond is dropped.
type Live struct {
	minInterval time.Duration
	now         func() time.Time

	mu      sync.Mutex
	out     chan Result
	stop    chan struct{}
	running bool
	last    time.Time
}

// NewLive creates a decoder bounded to maxPerSecond inputs; zero or less means unbounded.
func NewLive(maxPerSecond int) *Live {
	var interval time.Duration
	if maxPerSecond > 0 {
		interval = time.Second / time.Duration(maxPerSecond)
	}
	return &Live{minInterval: interval, now: time.Now}
}

// Start acquires the decoder. It is released by Stop or when ctx ends.
func (l *Live) Start(ctx context.Context) (<-chan Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil, ErrBusy
	}
	l.out = make(chan Result, 16)
	l.stop = make(chan struct{})
	l.running = true
	l.last = time.Time{}

	stop := l.stop
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Stop()
		case <-stop:
		}
	}()
	return l.out, nil
}

// Stop releases the decoder and closes the result channel. Stopping twice is a no-op.
func (l *Live) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	close(l.stop)
	close(l.out)
	return nil
}

// Running reports whether the decoder is started.
func (l *Live) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// FeedFrame decodes one frame. It reports false when the frame was dropped by the rate bound
// or because the result buffer is full.
func (l *Live) FeedFrame(img image.Image) (bool, error) {
	if ok, err := l.admit(); !ok || err != nil {
		return false, err
	}
	payload, err := DecodeImage(img)
	if err != nil {
		return l.emit(Result{Err: err})
	}
	return l.emit(Result{Payload: payload})
}

// FeedEncodedFrame decodes a JPEG or PNG frame read from r.
func (l *Live) FeedEncodedFrame(r io.Reader) (bool, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return false, fmt.Errorf("read frame: %w", err)
	}
	return l.FeedFrame(img)
}

// FeedText forwards a payload decoded on the client side.
func (l *Live) FeedText(payload string) (bool, error) {
	if ok, err := l.admit(); !ok || err != nil {
		return false, err
	}
	return l.emit(Result{Payload: strings.TrimSpace(payload)})
}

func (l *Live) admit() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return false, ErrNotStarted
	}
	now := l.now()
	if l.minInterval > 0 && !l.last.IsZero() && now.Sub(l.last) < l.minInterval {
		return false, nil
	}
	l.last = now
	return true, nil
}

func (l *Live) emit(res Result) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return false, ErrNotStarted
	}
	select {
	case l.out <- res:
		return true, nil
	default:
		return false, nil
	}
}

// DecodeImage returns the text of the QR code found in img.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("prepare frame: %w", err)
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	return res.GetText(), nil
}
