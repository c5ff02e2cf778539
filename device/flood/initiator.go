// Package flood implements the client/server side of topology discovery:
// starting a flood round, broadcasting the FloodRequest to every directly
// connected neighbor, and folding FloodResponses back into a path cache.
//
// Grounded on the reference client's Router trait
// (do_flooding/update_routing_for_server/update_routing_for_client in
// impl_router.rs) and its flood packet handler
// (impl_flooding_packets_handler.rs).
package flood

import (
	"log/slog"
	"sync"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/dedupe"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/pathcache"
)

// Config configures an Initiator.
type Config struct {
	SelfID   node.ID
	SelfKind node.Kind
	Cache    *pathcache.Cache
	Logger   *slog.Logger
}

// Initiator runs discovery rounds for one client or server node.
type Initiator struct {
	self     node.ID
	selfKind node.Kind
	cache    *pathcache.Cache
	log      *slog.Logger

	mu         sync.Mutex
	neighbors  map[node.ID]chan<- *codec.Packet
	floodSeq   uint64
	roundID    uint64
	roundLive  bool
	roundSeen  *dedupe.FloodSet
	discovered map[node.ID]struct{}
}

// New builds an Initiator from cfg.
func New(cfg Config) *Initiator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Initiator{
		self:      cfg.SelfID,
		selfKind:  cfg.SelfKind,
		cache:     cfg.Cache,
		log:       logger.With("node", cfg.SelfID),
		neighbors: make(map[node.ID]chan<- *codec.Packet),
		roundSeen: dedupe.New(),
	}
}

// AddNeighbor installs a direct channel to a connected drone.
func (i *Initiator) AddNeighbor(id node.ID, ch chan<- *codec.Packet) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.neighbors[id] = ch
}

// RemoveNeighbor withdraws a direct channel.
func (i *Initiator) RemoveNeighbor(id node.ID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.neighbors, id)
}

// Initiate starts a new discovery round: it bumps the flood identity,
// flushes every cached path (the whole topology is being rediscovered,
// grounded on do_flooding's routing_table.clear()) and broadcasts a fresh
// FloodRequest to every directly connected neighbor.
func (i *Initiator) Initiate(sessionID uint64) {
	i.mu.Lock()
	i.floodSeq++
	i.roundID = i.floodSeq
	i.roundLive = true
	i.roundSeen.Clear()
	i.discovered = make(map[node.ID]struct{})
	neighbors := make(map[node.ID]chan<- *codec.Packet, len(i.neighbors))
	for id, ch := range i.neighbors {
		neighbors[id] = ch
	}
	roundID := i.roundID
	i.mu.Unlock()

	i.cache.FlushAll()

	pkt := &codec.Packet{
		SessionID: sessionID,
		Type:      codec.PacketFloodRequest,
		FloodRequest: &codec.FloodRequestData{
			FloodID:     roundID,
			InitiatorID: i.self,
			PathTrace:   []node.Hop{{ID: i.self, Kind: i.selfKind}},
		},
	}
	for id, ch := range neighbors {
		ch <- pkt.Clone()
		i.log.Debug("flood request sent", "to", id, "flood_id", roundID)
	}
}

// HandleResponse folds a FloodResponse into the path cache, mirroring
// handle_flood_response: responses from drones or from a stale round are
// ignored, and the responder's path is installed as a new candidate route.
func (i *Initiator) HandleResponse(resp *codec.FloodResponseData) {
	responder, ok := resp.Responder()
	if !ok || responder.Kind == node.Drone {
		return
	}

	i.mu.Lock()
	if !i.roundLive || resp.FloodID != i.roundID {
		i.mu.Unlock()
		return
	}
	already := i.roundSeen.Seen(codec.FloodIdentity{FloodID: resp.FloodID, InitiatorID: responder.ID})
	if !already {
		i.discovered[responder.ID] = struct{}{}
	}
	i.mu.Unlock()
	if already {
		return
	}

	hops := make([]node.ID, len(resp.PathTrace))
	for idx, h := range resp.PathTrace {
		hops[idx] = h.ID
	}
	i.cache.Install(responder.ID, hops)
}

// Discovered returns the set of non-drone node ids this round has heard
// from so far.
func (i *Initiator) Discovered() []node.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]node.ID, 0, len(i.discovered))
	for id := range i.discovered {
		out = append(out, id)
	}
	return out
}

// RoundID returns the flood identity of the current (or most recent)
// discovery round.
func (i *Initiator) RoundID() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.roundID
}

// EndRound closes the current round so late responses carrying its
// identity are no longer folded into the cache.
func (i *Initiator) EndRound() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.roundLive = false
}
