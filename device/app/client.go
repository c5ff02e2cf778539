package app

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/pathcache"
	"github.com/danylo37/overlay-mesh/core/session"
	"github.com/danylo37/overlay-mesh/device/flood"
)

// mediaRef matches the "#Media[<key>]" embedded reference form a text
// response may carry, per §6's application vocabulary note.
var mediaRef = regexp.MustCompile(`#Media\[([^\]]+)\]`)

// ExtractMediaKeys returns every media key embedded in text via the
// "#Media[<key>]" form.
func ExtractMediaKeys(text string) []string {
	matches := mediaRef.FindAllStringSubmatch(text, -1)
	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m[1]
	}
	return keys
}

// ClientConfig configures a Client.
type ClientConfig struct {
	SelfID    node.ID
	Table     *session.Table
	Cache     *pathcache.Cache
	Events    EventSink
	OnResponse func(from node.ID, resp Response)
	Logger    *slog.Logger
}

// Client is the application actor that issues Query requests to servers
// and delivers their Response upward, generalizing the reference
// implementation's two client personalities (client_danylo, client_chen)
// into one: it can browse a text server and resolve "#Media[key]"
// references against a media server, since both behaviors are the same
// send-a-Query/await-a-Response loop underneath.
type Client struct {
	id       node.ID
	table    *session.Table
	cache    *pathcache.Cache
	alloc    *session.Allocator
	flood    *flood.Initiator
	onResp   func(node.ID, Response)
	log      *slog.Logger
	out      *outbox

	mu              sync.Mutex
	neighbors       map[node.ID]chan<- *codec.Packet
	pendingSessions map[uint64]node.ID // sessionID -> dest, for retry/discovery bookkeeping
}

// NewClient builds a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("node", cfg.SelfID)
	onResp := cfg.OnResponse
	if onResp == nil {
		onResp = func(node.ID, Response) {}
	}
	c := &Client{
		id:              cfg.SelfID,
		table:           cfg.Table,
		cache:           cfg.Cache,
		alloc:           session.NewAllocator(cfg.SelfID),
		onResp:          onResp,
		log:             logger,
		neighbors:       make(map[node.ID]chan<- *codec.Packet),
		pendingSessions: make(map[uint64]node.ID),
	}
	c.flood = flood.New(flood.Config{SelfID: cfg.SelfID, SelfKind: node.Client, Cache: cfg.Cache, Logger: logger})
	c.out = &outbox{id: cfg.SelfID, table: cfg.Table, events: cfg.Events, neighbor: c.neighbor, log: logger}
	return c
}

func (c *Client) neighbor(id node.ID) (chan<- *codec.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.neighbors[id]
	return ch, ok
}

// AddNeighbor installs a direct channel to a connected drone.
func (c *Client) AddNeighbor(id node.ID, ch chan<- *codec.Packet) {
	c.mu.Lock()
	c.neighbors[id] = ch
	c.mu.Unlock()
	c.flood.AddNeighbor(id, ch)
}

// RemoveNeighbor withdraws a direct channel.
func (c *Client) RemoveNeighbor(id node.ID) {
	c.mu.Lock()
	delete(c.neighbors, id)
	c.mu.Unlock()
	c.flood.RemoveNeighbor(id)
}

// StartFlooding begins a fresh discovery round.
func (c *Client) StartFlooding() {
	c.flood.Initiate(c.alloc.Next())
}

// Ask sends q to dest, returning the session id it was sent under. If no
// path to dest is cached yet, the fragments are held as NotSent and a
// discovery round is started automatically; Ask still returns the session
// id so the caller can correlate a later Response.
func (c *Client) Ask(dest node.ID, q Query) (uint64, error) {
	payload, err := codec.EncodeMessage(q)
	if err != nil {
		return 0, fmt.Errorf("app: encoding query: %w", err)
	}
	id := c.alloc.Next()
	s := c.table.NewOutbound(id, dest, payload)
	c.mu.Lock()
	c.pendingSessions[id] = dest
	c.mu.Unlock()

	if p, ok := c.cache.Select(dest); ok {
		p.Use()
		s.AssignPath(p)
		c.out.sendPending(id)
	} else {
		for i := range s.Status {
			s.Status[i] = session.Status{State: session.NotSent, Reason: session.ReasonToBeSent}
		}
		c.log.Debug("no cached path, starting discovery", "dest", dest)
		c.StartFlooding()
	}
	return id, nil
}

// HandlePacket dispatches one inbound packet.
func (c *Client) HandlePacket(pkt *codec.Packet) {
	switch pkt.Type {
	case codec.PacketMsgFragment:
		c.handleFragment(pkt)
	case codec.PacketAck:
		c.out.handleAck(pkt)
	case codec.PacketNack:
		c.handleNack(pkt)
	case codec.PacketFloodResponse:
		c.flood.HandleResponse(pkt.FloodResponse)
		c.retryDiscovered()
	case codec.PacketFloodRequest:
		c.out.respondFlood(pkt, node.Client)
	}
}

func (c *Client) handleFragment(pkt *codec.Packet) {
	if !c.out.receiveFragment(pkt) {
		return
	}
	data, err := c.table.Inbound(pkt.SessionID).Reassemble()
	c.table.DropInbound(pkt.SessionID)
	if err != nil {
		c.log.Warn("reassembly failed", "session_id", pkt.SessionID, "err", err)
		return
	}
	var resp Response
	if err := codec.DecodeMessage(data, &resp); err != nil {
		c.log.Warn("response decode failed", "session_id", pkt.SessionID, "err", err)
		return
	}
	from, _ := pkt.Routing.Source()
	c.onResp(from, resp)
}

func (c *Client) handleNack(pkt *codec.Packet) {
	action, ok := c.out.handleNack(pkt)
	if !ok {
		return
	}
	if action == session.ActionNeedsDiscovery {
		c.log.Debug("nack triggered rediscovery", "session_id", pkt.SessionID, "kind", pkt.Nack.Kind)
		c.StartFlooding()
	}
}

// retryDiscovered resends fragments of any pending session whose
// destination a just-finished flood round newly discovered a path to.
func (c *Client) retryDiscovered() {
	c.mu.Lock()
	sessions := make(map[uint64]node.ID, len(c.pendingSessions))
	for id, dest := range c.pendingSessions {
		sessions[id] = dest
	}
	c.mu.Unlock()

	for id, dest := range sessions {
		s, ok := c.table.Outbound(id)
		if !ok {
			c.mu.Lock()
			delete(c.pendingSessions, id)
			c.mu.Unlock()
			continue
		}
		if s.Path != nil {
			continue
		}
		p, ok := c.cache.Select(dest)
		if !ok {
			continue
		}
		p.Use()
		s.AssignPath(p)
		c.out.sendPending(id)
	}
}

// CheckTimeouts resends fragments that have been InFlight longer than the
// table's ACK timeout, driven by the node runtime's periodic tick.
func (c *Client) CheckTimeouts() {
	for _, ref := range c.table.TimedOut() {
		s, ok := c.table.Outbound(ref.SessionID)
		if !ok {
			continue
		}
		pkt, err := s.BuildPacket(int(ref.Index))
		if err != nil {
			continue
		}
		c.out.deliver(pkt)
		c.table.MarkSent(ref.SessionID, ref.Index)
	}
}

// ResolveMedia issues an AskMedia query to mediaServer for every
// "#Media[key]" reference found in text.
func (c *Client) ResolveMedia(mediaServer node.ID, text string) []uint64 {
	var ids []uint64
	for _, key := range ExtractMediaKeys(text) {
		id, err := c.Ask(mediaServer, AskMedia(key))
		if err != nil {
			c.log.Warn("media resolution failed", "key", key, "err", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
