// Package codec defines the wire types exchanged between nodes: packets,
// fragments, acknowledgements, negative acknowledgements and flood
// messages, plus the JSON encoding used to serialize application messages
// before fragmentation.
package codec

import (
	"errors"

	"github.com/danylo37/overlay-mesh/core/node"
)

// PacketType distinguishes the five kinds of packet defined by the
// protocol. Only MsgFragment is droppable; the rest are control traffic
// that a drone must never silently discard.
type PacketType uint8

const (
	PacketMsgFragment PacketType = iota
	PacketAck
	PacketNack
	PacketFloodRequest
	PacketFloodResponse
)

func (t PacketType) String() string {
	switch t {
	case PacketMsgFragment:
		return "MsgFragment"
	case PacketAck:
		return "Ack"
	case PacketNack:
		return "Nack"
	case PacketFloodRequest:
		return "FloodRequest"
	case PacketFloodResponse:
		return "FloodResponse"
	default:
		return "Unknown"
	}
}

// Droppable reports whether packets of this type may be probabilistically
// dropped by a drone. Only fragments are; ACK, NACK and flood traffic are
// never dropped on the wire (they may still fail to route).
func (t PacketType) Droppable() bool {
	return t == PacketMsgFragment
}

var (
	ErrMissingFragment      = errors.New("codec: MsgFragment packet missing fragment payload")
	ErrMissingAck           = errors.New("codec: Ack packet missing ack payload")
	ErrMissingNack          = errors.New("codec: Nack packet missing nack payload")
	ErrMissingFloodRequest  = errors.New("codec: FloodRequest packet missing flood request payload")
	ErrMissingFloodResponse = errors.New("codec: FloodResponse packet missing flood response payload")
)

// Packet is the single wire envelope for every message exchanged between
// nodes. Exactly one of the payload fields is populated, selected by Type.
// FloodRequest and FloodResponse carry their own routing state (path_trace)
// and leave Routing zero for requests; Routing is populated for every other
// type, including flood responses, which are source-routed back.
type Packet struct {
	Routing   node.SourceRoutingHeader `json:"routing_header"`
	SessionID uint64                   `json:"session_id"`
	Type      PacketType               `json:"pack_type"`

	Fragment      *Fragment          `json:"fragment,omitempty"`
	Ack           *AckData           `json:"ack,omitempty"`
	Nack          *NackData          `json:"nack,omitempty"`
	FloodRequest  *FloodRequestData  `json:"flood_request,omitempty"`
	FloodResponse *FloodResponseData `json:"flood_response,omitempty"`
}

// Validate checks that the packet carries the payload its Type demands.
func (p *Packet) Validate() error {
	switch p.Type {
	case PacketMsgFragment:
		if p.Fragment == nil {
			return ErrMissingFragment
		}
	case PacketAck:
		if p.Ack == nil {
			return ErrMissingAck
		}
	case PacketNack:
		if p.Nack == nil {
			return ErrMissingNack
		}
	case PacketFloodRequest:
		if p.FloodRequest == nil {
			return ErrMissingFloodRequest
		}
	case PacketFloodResponse:
		if p.FloodResponse == nil {
			return ErrMissingFloodResponse
		}
	}
	return nil
}

// Droppable reports whether this packet may be probabilistically dropped.
func (p *Packet) Droppable() bool {
	return p.Type.Droppable()
}

// Clone returns a deep copy of the packet, safe to mutate independently of
// the original. Forwarding and flood propagation both mutate a routing
// header or path trace in place and must never do so on a packet another
// goroutine — or a later retransmission — still holds a reference to.
func (p *Packet) Clone() *Packet {
	cp := &Packet{
		Routing:   p.Routing.Clone(),
		SessionID: p.SessionID,
		Type:      p.Type,
	}
	if p.Fragment != nil {
		f := *p.Fragment
		cp.Fragment = &f
	}
	if p.Ack != nil {
		a := *p.Ack
		cp.Ack = &a
	}
	if p.Nack != nil {
		n := *p.Nack
		cp.Nack = &n
	}
	if p.FloodRequest != nil {
		fr := p.FloodRequest.Clone()
		cp.FloodRequest = &fr
	}
	if p.FloodResponse != nil {
		fr := p.FloodResponse.Clone()
		cp.FloodResponse = &fr
	}
	return cp
}
