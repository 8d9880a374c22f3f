package scansession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerDeliversLatestOnce(t *testing.T) {
	got := make(chan string, 4)
	d := NewDebouncer(30*time.Millisecond, func(p string) { got <- p })
	defer d.Stop()

	d.Call("A12")
	d.Call("A12")
	d.Call("B07")

	select {
	case p := <-got:
		assert.Equal(t, "B07", p)
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	select {
	case p := <-got:
		t.Fatalf("unexpected second delivery %q", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerZeroIntervalIsSynchronous(t *testing.T) {
	var got []string
	d := NewDebouncer(0, func(p string) { got = append(got, p) })
	d.Call("A12")
	d.Call("A12")
	assert.Equal(t, []string{"A12", "A12"}, got)
}

func TestDebouncerStopDropsPending(t *testing.T) {
	got := make(chan string, 1)
	d := NewDebouncer(20*time.Millisecond, func(p string) { got <- p })
	d.Call("A12")
	d.Stop()
	d.Call("B07")

	select {
	case p := <-got:
		t.Fatalf("stopped debouncer delivered %q", p)
	case <-time.After(80 * time.Millisecond):
	}
}
