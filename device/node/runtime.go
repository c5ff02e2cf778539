// Package node provides the generic event loop shared by drones, clients,
// and servers: a biased select over controller commands, inbound packets,
// and a periodic tick, with a crash-drain tail once a command marks the
// node as crashing.
//
// Grounded on RustyDrone.run()'s select_biased! loop (controller_recv
// checked before packet_recv, then a drain loop reading only packet_recv
// once crashing) and on router.Router's Start/Stop/ticker idiom.
package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
)

// DefaultTickInterval is how often OnTick fires when Config.TickInterval
// is left unset.
const DefaultTickInterval = 10 * time.Millisecond

// Command is a controller instruction delivered to a running node. Its
// concrete type is defined by the device/controller package; Runtime only
// ever hands it to OnCommand unexamined.
type Command interface{}

// Config configures a Runtime.
type Config struct {
	// SelfID identifies the node this runtime drives, for logging only.
	SelfID node.ID

	// TickInterval is how often OnTick fires. Default: 10ms.
	TickInterval time.Duration

	// OnCommand handles one controller command. Its return value reports
	// whether the node should now start crash-draining: once true, Run
	// stops invoking OnCommand and OnTick and only keeps delivering
	// packets already in flight, mirroring handle_commands' Crash arm.
	OnCommand func(Command) (crashing bool)

	// OnPacket handles one inbound packet. Called both in normal
	// operation and while crash-draining.
	OnPacket func(*codec.Packet)

	// OnTick fires once per TickInterval while the node is not crashing.
	OnTick func()

	// Logger for lifecycle events. Falls back to slog.Default() if nil.
	Logger *slog.Logger
}

// Runtime drives one node's event loop. It is not reused across Run calls
// concurrently, but Start/Stop may be called repeatedly in sequence.
type Runtime struct {
	id           node.ID
	tickInterval time.Duration
	onCommand    func(Command) bool
	onPacket     func(*codec.Packet)
	onTick       func()
	log          *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Runtime from cfg.
func New(cfg Config) *Runtime {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		id:           cfg.SelfID,
		tickInterval: interval,
		onCommand:    cfg.OnCommand,
		onPacket:     cfg.OnPacket,
		onTick:       cfg.OnTick,
		log:          logger.With("node", cfg.SelfID),
	}
}

// Run drives the event loop until ctx is cancelled, the node crashes and
// then drains its packet channel to closure, or packets is closed outright.
// It blocks; callers that want a managed goroutine should use Start/Stop
// instead.
func (rt *Runtime) Run(ctx context.Context, commands <-chan Command, packets <-chan *codec.Packet) {
	ticker := time.NewTicker(rt.tickInterval)
	defer ticker.Stop()

	crashing := false
	for !crashing {
		// Bias toward commands: a command already waiting is handled
		// before any packet or tick, even if both are ready.
		select {
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			crashing = rt.handleCommand(cmd)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			crashing = rt.handleCommand(cmd)
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			if rt.onPacket != nil {
				rt.onPacket(pkt)
			}
		case <-ticker.C:
			if rt.onTick != nil {
				rt.onTick()
			}
		}
	}

	rt.log.Debug("crash-draining, no longer accepting commands or ticks")
	rt.drain(ctx, packets)
}

func (rt *Runtime) handleCommand(cmd Command) bool {
	if rt.onCommand == nil {
		return false
	}
	return rt.onCommand(cmd)
}

// drain keeps delivering packets already addressed to this node, matching
// the firmware's behavior of finishing in-flight routable traffic rather
// than dropping it the instant a crash is commanded.
func (rt *Runtime) drain(ctx context.Context, packets <-chan *codec.Packet) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			if rt.onPacket != nil {
				rt.onPacket(pkt)
			}
		}
	}
}

// Start runs the event loop in its own goroutine until Stop is called or
// ctx is cancelled.
func (rt *Runtime) Start(ctx context.Context, commands <-chan Command, packets <-chan *codec.Packet) {
	ctx, rt.cancel = context.WithCancel(ctx)
	rt.done = make(chan struct{})
	go func() {
		defer close(rt.done)
		rt.Run(ctx, commands, packets)
	}()
}

// Stop cancels the running loop and waits for it to return.
func (rt *Runtime) Stop() {
	if rt.cancel != nil {
		rt.cancel()
		<-rt.done
		rt.cancel = nil
	}
}
