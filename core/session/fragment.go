package session

// FragmentState is a send-side fragment's position in its lifecycle:
// Pending -> InFlight -> Acked, with retryable detours through NotSent on
// NACK or routing failure.
type FragmentState uint8

const (
	Pending FragmentState = iota
	InFlight
	Acked
	NotSent
)

func (s FragmentState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case InFlight:
		return "InFlight"
	case Acked:
		return "Acked"
	case NotSent:
		return "NotSent"
	default:
		return "Unknown"
	}
}

// NotSentReason qualifies a NotSent fragment with why it isn't in flight.
type NotSentReason uint8

const (
	// ReasonNone is used when State != NotSent.
	ReasonNone NotSentReason = iota
	// ReasonToBeSent: no path to the destination exists yet; a discovery
	// has been scheduled.
	ReasonToBeSent
	// ReasonDropped: a drone probabilistically dropped the fragment.
	ReasonDropped
	// ReasonRoutingError: a drone reported a missing next hop.
	ReasonRoutingError
	// ReasonDroneDestination: the route terminated at a drone, a sender
	// programming error. The fragment is abandoned.
	ReasonDroneDestination
	// ReasonBeenInWrongRecipient: a drone reported it wasn't the addressed
	// hop. Held pending controller topology repair.
	ReasonBeenInWrongRecipient
)

func (r NotSentReason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonToBeSent:
		return "ToBeSent"
	case ReasonDropped:
		return "Dropped"
	case ReasonRoutingError:
		return "RoutingError"
	case ReasonDroneDestination:
		return "DroneDestination"
	case ReasonBeenInWrongRecipient:
		return "BeenInWrongRecipient"
	default:
		return "Unknown"
	}
}

// Status is the full lifecycle state of one outbound fragment.
type Status struct {
	State  FragmentState
	Reason NotSentReason
}
