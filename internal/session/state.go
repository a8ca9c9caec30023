package session

// State is the session lifecycle position. It is mutated only by the
// session's own transition logic.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateConfiguring
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}
