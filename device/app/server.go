package app

import (
	"log/slog"
	"sync"

	"github.com/danylo37/overlay-mesh/core/codec"
	"github.com/danylo37/overlay-mesh/core/node"
	"github.com/danylo37/overlay-mesh/core/pathcache"
	"github.com/danylo37/overlay-mesh/core/session"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	SelfID     node.ID
	Type       ServerType
	Table      *session.Table
	Store      *Store
	Events     EventSink
	OnRegister func(node.ID)
	Logger     *slog.Logger
}

// Server answers Query requests. It never runs flood discovery itself: a
// server only ever replies along the reverse of a route a request just
// arrived on, so its outbound sessions are assigned a synthetic,
// throwaway path built directly from the completing fragment's routing
// header rather than consulting a pathcache.Cache.
//
// Grounded on text_server.rs's TextServer (reassembling_messages,
// sending_messages, clients, content) generalized to also cover the
// communication-server registration/relay behavior and the media-server
// content lookup, since all three are the same request/reply shape over a
// different Query/Response subset.
type Server struct {
	id     node.ID
	kind   ServerType
	table  *session.Table
	store  *Store
	alloc  *session.Allocator
	onReg  func(node.ID)
	log    *slog.Logger
	out    *outbox

	mu        sync.Mutex
	neighbors map[node.ID]chan<- *codec.Packet
	clients   map[node.ID]struct{}
	routes    map[node.ID]node.SourceRoutingHeader
}

// NewServer builds a Server from cfg.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("node", cfg.SelfID)
	onReg := cfg.OnRegister
	if onReg == nil {
		onReg = func(node.ID) {}
	}
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	s := &Server{
		id:        cfg.SelfID,
		kind:      cfg.Type,
		table:     cfg.Table,
		store:     store,
		alloc:     session.NewAllocator(cfg.SelfID),
		onReg:     onReg,
		log:       logger,
		neighbors: make(map[node.ID]chan<- *codec.Packet),
		clients:   make(map[node.ID]struct{}),
		routes:    make(map[node.ID]node.SourceRoutingHeader),
	}
	s.out = &outbox{id: cfg.SelfID, table: cfg.Table, events: cfg.Events, neighbor: s.neighbor, log: logger}
	return s
}

func (s *Server) neighbor(id node.ID) (chan<- *codec.Packet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.neighbors[id]
	return ch, ok
}

// AddNeighbor installs a direct channel to a connected drone.
func (s *Server) AddNeighbor(id node.ID, ch chan<- *codec.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neighbors[id] = ch
}

// RemoveNeighbor withdraws a direct channel.
func (s *Server) RemoveNeighbor(id node.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.neighbors, id)
}

// HandlePacket dispatches one inbound packet.
func (s *Server) HandlePacket(pkt *codec.Packet) {
	switch pkt.Type {
	case codec.PacketMsgFragment:
		s.handleFragment(pkt)
	case codec.PacketAck:
		s.out.handleAck(pkt)
	case codec.PacketNack:
		// A server has no path cache to rediscover from: a reply
		// fragment NACKed as Dropped is retransmitted along the same
		// reversed route; other NACK kinds are not acted on here.
		s.out.handleNack(pkt)
	case codec.PacketFloodRequest:
		s.out.respondFlood(pkt, node.Server)
	}
}

func (s *Server) handleFragment(pkt *codec.Packet) {
	if !s.out.receiveFragment(pkt) {
		return
	}
	data, err := s.table.Inbound(pkt.SessionID).Reassemble()
	s.table.DropInbound(pkt.SessionID)
	if err != nil {
		s.log.Warn("reassembly failed", "session_id", pkt.SessionID, "err", err)
		return
	}
	var q Query
	if err := codec.DecodeMessage(data, &q); err != nil {
		s.log.Warn("query decode failed", "session_id", pkt.SessionID, "err", err)
		return
	}
	from, _ := pkt.Routing.Source()
	s.reply(from, pkt.Routing, s.answer(from, q))
}

// answer computes the Response for q, dispatching on ServerType the way
// each reference server personality (communication/text/media) only
// understands its own Query subset.
func (s *Server) answer(from node.ID, q Query) Response {
	switch q.Kind {
	case QueryAskType:
		return TypeResponse(s.kind)
	case QueryRegisterClient:
		if s.kind != ServerCommunication {
			return ErrResponse("not a communication server")
		}
		s.mu.Lock()
		s.clients[from] = struct{}{}
		s.mu.Unlock()
		s.onReg(from)
		return ClientRegistered()
	case QueryUnregisterClient:
		if s.kind != ServerCommunication {
			return ErrResponse("not a communication server")
		}
		s.mu.Lock()
		delete(s.clients, from)
		s.mu.Unlock()
		return ClientRegistered()
	case QueryAskListClients:
		if s.kind != ServerCommunication {
			return ErrResponse("not a communication server")
		}
		s.mu.Lock()
		ids := make([]node.ID, 0, len(s.clients))
		for id := range s.clients {
			ids = append(ids, id)
		}
		s.mu.Unlock()
		return ListClients(ids)
	case QuerySendMessageTo:
		if s.kind != ServerCommunication {
			return ErrResponse("not a communication server")
		}
		s.mu.Lock()
		_, registered := s.clients[q.ClientID]
		s.mu.Unlock()
		if !registered {
			return ErrResponse("recipient not registered")
		}
		s.relay(q.ClientID, from, q.Message)
		return ClientRegistered()
	case QueryAskListFiles:
		if s.kind != ServerText {
			return ErrResponse("not a text server")
		}
		return ListFiles(s.store.ListFiles())
	case QueryAskFile:
		if s.kind != ServerText {
			return ErrResponse("not a text server")
		}
		content, err := s.store.File(q.FileIndex)
		if err != nil {
			return ErrResponse(err.Error())
		}
		return FileResponse(content)
	case QueryAskMedia:
		if s.kind != ServerMedia {
			return ErrResponse("not a media server")
		}
		content, err := s.store.Media(q.MediaKey)
		if err != nil {
			return ErrResponse(err.Error())
		}
		return MediaResponse(content)
	default:
		return ErrResponse("unknown query")
	}
}

// relay forwards a communication server message to a registered client's
// last known inbound route. Since the server only ever learns a client's
// route from that client's own inbound requests, relay reuses the route
// the recipient most recently sent this server a request along; a
// destination with no prior request cannot yet be relayed to.
func (s *Server) relay(to, from node.ID, message string) {
	route, ok := s.lastRoute(to)
	if !ok {
		s.log.Warn("cannot relay, no known route to recipient", "to", to)
		return
	}
	s.reply(to, route, MessageFrom(from, message))
}

// lastRoute returns the most recently seen inbound route from id, if the
// server has stored one from a prior request.
func (s *Server) lastRoute(id node.ID) (node.SourceRoutingHeader, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	route, ok := s.routes[id]
	return route, ok
}

// reply fragments and sends resp back to dest along the reverse of
// inbound — the route a request from dest last arrived on — and remembers
// inbound so a later out-of-band relay (SendMessageTo) can reach dest
// again without a request in hand.
func (s *Server) reply(dest node.ID, inbound node.SourceRoutingHeader, resp Response) {
	s.mu.Lock()
	s.routes[dest] = inbound
	s.mu.Unlock()
	reversed := inbound.Reversed()

	payload, err := codec.EncodeMessage(resp)
	if err != nil {
		s.log.Warn("encoding response failed", "dest", dest, "err", err)
		return
	}
	id := s.alloc.Next()
	sess := s.table.NewOutbound(id, dest, payload)
	sess.AssignPath(&pathcache.Path{Hops: reversed.Hops})
	s.out.sendPending(id)
}
