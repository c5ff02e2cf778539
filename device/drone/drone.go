// Package drone implements the packet-forwarding engine run by every drone
// node: source-routed forwarding, probabilistic drop, NACK generation,
// the crash drain sequence and flood-request propagation.
//
// This corresponds to RustyDrone's handle_packet/respond_normal/
// respond_flood_request trio in the reference drone implementation, ported
// onto the mesh router's gated, callback-driven style.
package drone

import (
	"log/slog"
	"math/rand"
	"sync"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/dedupe"
	"github.com/danylo37/overlay-mesh/core/node"
)

// State is the drone's lifecycle stage.
type State uint8

const (
	Running State = iota
	Crashing
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Crashing:
		return "crashing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventSink receives the side effects of forwarding decisions, for a
// controller to mirror as PacketSent/PacketDropped/ControllerShortcut
// events.
type EventSink interface {
	PacketSent(pkt *codec.Packet, to node.ID)
	PacketDropped(pkt *codec.Packet)
	Shortcut(pkt *codec.Packet)
}

// Config configures a Drone.
type Config struct {
	ID     node.ID
	PDR    float64
	Events EventSink

	// Rand supplies the drop-probability sample in [0,1). Defaults to
	// rand.Float64; tests substitute a deterministic source.
	Rand func() float64

	Logger *slog.Logger
}

// Drone is one forwarding node of the overlay.
type Drone struct {
	id     node.ID
	events EventSink
	rng    func() float64
	log    *slog.Logger

	mu        sync.Mutex
	pdr       float64
	neighbors map[node.ID]chan<- *codec.Packet
	state     State
	floods    *dedupe.FloodSet
}

// New builds a Drone from cfg.
func New(cfg Config) *Drone {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.Float64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Drone{
		id:        cfg.ID,
		events:    cfg.Events,
		rng:       rng,
		log:       logger.With("drone", cfg.ID),
		pdr:       cfg.PDR,
		neighbors: make(map[node.ID]chan<- *codec.Packet),
		floods:    dedupe.New(),
	}
}

// ID returns the drone's identity.
func (d *Drone) ID() node.ID { return d.id }

// SetPDR updates the packet drop rate, effective for the next packet
// processed (SetPacketDropRate command).
func (d *Drone) SetPDR(pdr float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pdr = pdr
}

// PDR returns the current packet drop rate.
func (d *Drone) PDR() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pdr
}

// AddNeighbor installs the outbound channel used to reach id directly
// (AddSender command).
func (d *Drone) AddNeighbor(id node.ID, ch chan<- *codec.Packet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.neighbors[id] = ch
}

// RemoveNeighbor withdraws a direct channel (RemoveSender command).
func (d *Drone) RemoveNeighbor(id node.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.neighbors, id)
}

// Crash moves the drone into the draining state: it stops originating new
// flood responses and NACKs every droppable packet with ErrorInRouting,
// even one it could forward, while still forwarding non-droppable control
// packets it can route and shortcutting those it cannot forward.
func (d *Drone) Crash() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Crashing
}

// Stop marks the drone fully drained; its channels may be torn down.
func (d *Drone) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Stopped
}

// State reports the drone's current lifecycle stage.
func (d *Drone) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Drone) neighbor(id node.ID) (chan<- *codec.Packet, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.neighbors[id]
	return ch, ok
}

func (d *Drone) crashing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == Crashing
}

func (d *Drone) sample() float64 {
	return d.rng()
}

// HandlePacket is the drone's single entry point for an incoming packet,
// equivalent to RustyDrone.handle_packet: flood requests are routed by
// identity and path-trace accumulation; everything else is source-routed.
func (d *Drone) HandlePacket(pkt *codec.Packet) {
	if pkt.Type == codec.PacketFloodRequest {
		if !d.crashing() {
			d.respondFloodRequest(pkt)
		}
		return
	}
	d.respondNormal(pkt)
}
