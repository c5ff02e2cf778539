// Package controller implements the single actor that owns the network's
// topology: it dispatches commands to individual nodes, observes the
// events they raise, re-injects packets a drone could not forward
// (shortcut), and exposes Prometheus metrics and a subscribable event
// stream for external monitors.
//
// Grounded on the reference client's command-handling pattern
// (impl_command_handler.rs's ClientCommand::AddSender/RemoveSender) and on
// router.Router's single-goroutine event loop for the Start/Stop idiom.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	devnode "github.com/danylo37/overlay-mesh/device/node"
)

// DefaultEventBuffer is how many raised events may queue before a node's
// sink call blocks. Generous, since the controller is expected to drain
// promptly and nodes must never block on a send to it.
const DefaultEventBuffer = 256

// Config configures a Controller.
type Config struct {
	Metrics     *Metrics
	EventBuffer int
	Logger      *slog.Logger
}

// nodeLink is everything the controller needs to drive one registered
// node: where to send it commands (including re-injected shortcut
// packets), and the inbound packet channel handed to its neighbors on
// Connect.
type nodeLink struct {
	kind     node.Kind
	commands chan<- devnode.Command
	inbound  chan<- *codec.Packet
}

// Controller is the single actor that supervises a running topology.
type Controller struct {
	log     *slog.Logger
	metrics *Metrics
	events  chan Event

	mu          sync.Mutex
	nodes       map[node.ID]nodeLink
	topology    map[node.ID]map[node.ID]bool
	subscribers []chan<- Event

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Controller from cfg.
func New(cfg Config) *Controller {
	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = DefaultEventBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Controller{
		log:      logger.WithGroup("controller"),
		metrics:  metrics,
		events:   make(chan Event, buf),
		nodes:    make(map[node.ID]nodeLink),
		topology: make(map[node.ID]map[node.ID]bool),
	}
}

// Run drains the event channel until ctx is cancelled. Use Start/Stop for
// a managed goroutine instead of calling Run directly.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Start runs the controller's event loop in its own goroutine.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.Run(ctx)
	}()
}

// Stop cancels the running loop and waits for it to return.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
}

// Register tells the controller about a node it can now command: its kind,
// the channel its Runtime reads commands from (also used for shortcut
// re-injection), and the channel its Runtime reads packets from (given to
// its neighbors by Connect).
func (c *Controller) Register(id node.ID, kind node.Kind, commands chan<- devnode.Command, inbound chan<- *codec.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[id] = nodeLink{kind: kind, commands: commands, inbound: inbound}
	if c.topology[id] == nil {
		c.topology[id] = make(map[node.ID]bool)
	}
}

// Unregister removes a node and every link the topology mirror recorded
// for it.
func (c *Controller) Unregister(id node.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, id)
	for peer := range c.topology[id] {
		delete(c.topology[peer], id)
	}
	delete(c.topology, id)
}

// EventSink returns an adapter satisfying device/drone.EventSink (and the
// equivalent contract in device/app) for the named node, routing every
// raised event through the controller's single event channel.
func (c *Controller) EventSink(id node.ID) EventSink {
	return EventSink{c: c, id: id}
}

// EventSink is the per-node handle a Drone, Client, or Server is
// configured with. Its methods only enqueue onto the controller's event
// channel; they block only while that buffer is full.
type EventSink struct {
	c  *Controller
	id node.ID
}

func (s EventSink) PacketSent(pkt *codec.Packet, to node.ID) {
	s.c.emit(Event{Kind: EventPacketSent, NodeID: s.id, Packet: pkt, To: to})
}

func (s EventSink) PacketDropped(pkt *codec.Packet) {
	s.c.emit(Event{Kind: EventPacketDropped, NodeID: s.id, Packet: pkt})
}

func (s EventSink) Shortcut(pkt *codec.Packet) {
	s.c.emit(Event{Kind: EventControllerShortcut, NodeID: s.id, Packet: pkt})
}

func (c *Controller) emit(ev Event) {
	c.events <- ev
}

// Subscribe registers ch to receive a copy of every event the controller
// processes, for a monitoring UI or the MQTT telemetry bridge. Sends are
// non-blocking: a slow subscriber loses events rather than stalling the
// controller.
func (c *Controller) Subscribe(ch chan<- Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, ch)
}

// Metrics returns the controller's Prometheus instrumentation.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

func (c *Controller) handle(ev Event) {
	switch ev.Kind {
	case EventPacketSent:
		c.metrics.PacketsSent.Inc()
	case EventPacketDropped:
		c.metrics.PacketsDropped.Inc()
	case EventControllerShortcut:
		c.metrics.Shortcuts.Inc()
		c.reinject(ev.Packet)
	}

	c.mu.Lock()
	subs := make([]chan<- Event, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- ev:
		default:
			c.log.Warn("dropping event for slow subscriber")
		}
	}
}

// reinject delivers an undeliverable control packet directly to its
// destination's command channel as a ShortcutPacket, the controller
// looking at hops.last() the way spec §4.2 describes.
func (c *Controller) reinject(pkt *codec.Packet) {
	dest, ok := pkt.Routing.Destination()
	if !ok {
		c.log.Warn("shortcut packet carries no destination", "session_id", pkt.SessionID)
		return
	}
	c.mu.Lock()
	link, ok := c.nodes[dest]
	c.mu.Unlock()
	if !ok {
		c.log.Warn("shortcut target is not a registered node", "dest", dest)
		return
	}
	link.commands <- ShortcutPacket{Packet: pkt}
}

// Connect wires two nodes together symmetrically: each is told to
// AddSender the other's inbound channel, and the topology mirror is
// updated both ways.
func (c *Controller) Connect(a, b node.ID) error {
	c.mu.Lock()
	la, ok := c.nodes[a]
	lb, okB := c.nodes[b]
	c.mu.Unlock()
	if !ok || !okB {
		return fmt.Errorf("controller: connect %d-%d: unregistered node", a, b)
	}
	la.commands <- AddSender{ID: b, Ch: lb.inbound}
	lb.commands <- AddSender{ID: a, Ch: la.inbound}
	c.mu.Lock()
	c.topology[a][b] = true
	c.topology[b][a] = true
	c.mu.Unlock()
	return nil
}

// Disconnect tears down a symmetric link.
func (c *Controller) Disconnect(a, b node.ID) error {
	c.mu.Lock()
	la, ok := c.nodes[a]
	lb, okB := c.nodes[b]
	c.mu.Unlock()
	if !ok || !okB {
		return fmt.Errorf("controller: disconnect %d-%d: unregistered node", a, b)
	}
	la.commands <- RemoveSender{ID: b}
	lb.commands <- RemoveSender{ID: a}
	c.mu.Lock()
	delete(c.topology[a], b)
	delete(c.topology[b], a)
	c.mu.Unlock()
	return nil
}

// SetPacketDropRate hot-swaps a drone's PDR.
func (c *Controller) SetPacketDropRate(id node.ID, rate float64) error {
	c.mu.Lock()
	link, ok := c.nodes[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: set pdr on %d: unregistered node", id)
	}
	link.commands <- SetPacketDropRate{Rate: rate}
	return nil
}

// Crash begins a drone's graceful crash-drain.
func (c *Controller) Crash(id node.ID) error {
	c.mu.Lock()
	link, ok := c.nodes[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: crash %d: unregistered node", id)
	}
	link.commands <- Crash{}
	return nil
}

// StartFlooding tells a client or server to begin a discovery round.
func (c *Controller) StartFlooding(id node.ID) error {
	c.mu.Lock()
	link, ok := c.nodes[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: start flooding on %d: unregistered node", id)
	}
	link.commands <- StartFlooding{}
	return nil
}

// Neighbors returns the topology mirror's view of id's directly connected
// peers, for tests and monitoring.
func (c *Controller) Neighbors(id node.ID) []node.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]node.ID, 0, len(c.topology[id]))
	for peer := range c.topology[id] {
		out = append(out, peer)
	}
	return out
}
