package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danylo37/overlay-mesh/core/codec"
)

// TestRuntimePrefersCommandsOverPackets relies on Run's first, non-blocking
// select checking only the command channel: with both a command and a
// packet already buffered before Run starts, the command must be handled
// first regardless of goroutine scheduling.
func TestRuntimePrefersCommandsOverPackets(t *testing.T) {
	commands := make(chan Command, 1)
	packets := make(chan *codec.Packet, 1)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	rt := New(Config{
		SelfID: 1,
		OnCommand: func(Command) bool {
			mu.Lock()
			order = append(order, "command")
			mu.Unlock()
			return false
		},
		OnPacket: func(*codec.Packet) {
			mu.Lock()
			order = append(order, "packet")
			mu.Unlock()
			close(done)
		},
	})

	commands <- struct{}{}
	packets <- &codec.Packet{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.Run(ctx, commands, packets)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("packet handler never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "command" || order[1] != "packet" {
		t.Fatalf("order = %v, want [command packet]", order)
	}
}

func TestRuntimeFiresTick(t *testing.T) {
	commands := make(chan Command)
	packets := make(chan *codec.Packet)
	ticked := make(chan struct{}, 1)

	rt := New(Config{
		SelfID:       1,
		TickInterval: 5 * time.Millisecond,
		OnTick: func() {
			select {
			case ticked <- struct{}{}:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.Run(ctx, commands, packets)

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("OnTick never fired")
	}
}

// TestRuntimeDrainsPacketsAfterCrash covers the crash-drain tail: once
// OnCommand reports crashing, further commands and ticks stop, but packets
// already queued are still delivered until the channel closes.
func TestRuntimeDrainsPacketsAfterCrash(t *testing.T) {
	commands := make(chan Command, 1)
	packets := make(chan *codec.Packet, 2)

	var mu sync.Mutex
	handled := 0
	ticked := false

	rt := New(Config{
		SelfID:       1,
		TickInterval: 2 * time.Millisecond,
		OnCommand:    func(Command) bool { return true },
		OnPacket: func(*codec.Packet) {
			mu.Lock()
			handled++
			mu.Unlock()
		},
		OnTick: func() {
			mu.Lock()
			ticked = true
			mu.Unlock()
		},
	})

	commands <- struct{}{}
	packets <- &codec.Packet{}
	packets <- &codec.Packet{}

	finished := make(chan struct{})
	go func() {
		rt.Run(context.Background(), commands, packets)
		close(finished)
	}()

	// Give the loop time to consume the crash command and enter the drain
	// tail before closing packets out from under it.
	time.Sleep(30 * time.Millisecond)
	close(packets)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run never returned after the packet channel closed")
	}

	mu.Lock()
	defer mu.Unlock()
	if handled != 2 {
		t.Fatalf("handled = %d, want 2", handled)
	}
	if ticked {
		t.Fatal("OnTick must not fire once the node is crash-draining")
	}
}

func TestRuntimeStartStop(t *testing.T) {
	commands := make(chan Command)
	packets := make(chan *codec.Packet)

	rt := New(Config{SelfID: 1})
	rt.Start(context.Background(), commands, packets)

	done := make(chan struct{})
	go func() {
		rt.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}
}
