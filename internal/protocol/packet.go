package protocol

// BroadcastNodeNum is the well-known numeric address for mesh-wide delivery.
const BroadcastNodeNum uint32 = 0xFFFFFFFF

// User identifies one mesh participant.
// ID is the externally visible unique id ("!"-prefixed hex of the hardware mac);
// uniqueness across the mesh is not enforced by the device.
type User struct {
	ID        string
	LongName  string
	ShortName string
	HWModel   string
}

// Position is a node's last reported fix.
// Latitude/longitude are in degrees scaled by 1e7, altitude in meters,
// Time in epoch seconds of the fix.
type Position struct {
	LatitudeI  int32
	LongitudeI int32
	Altitude   int32
	Time       uint32
}

// NodeInfo is the device's full report for one known node.
type NodeInfo struct {
	Num      uint32
	User     *User
	Position *Position
}

// MyNodeInfo describes the connected device itself.
// CurrentPacketID seeds the outbound packet id allocator.
type MyNodeInfo struct {
	NodeNum         uint32
	CurrentPacketID uint32
}

// RadioConfig is the device settings blob. The engine treats it as opaque
// and only merges whole replacements over the held snapshot.
type RadioConfig struct {
	Settings []byte
}

// Clone returns an independent copy of the config.
func (c RadioConfig) Clone() RadioConfig {
	if c.Settings == nil {
		return RadioConfig{}
	}
	out := make([]byte, len(c.Settings))
	copy(out, c.Settings)
	return RadioConfig{Settings: out}
}

// Data is an application payload carried in a mesh packet.
// PortNum tags the payload type for the receiving application.
type Data struct {
	PortNum uint32
	Payload []byte
}

// PortNumText is the well-known port for plain text messages.
const PortNumText uint32 = 1

// MeshPacket is one mesh-routed message. Exactly one of Data, User or
// Position is set; the others must be nil.
type MeshPacket struct {
	From         uint32
	To           uint32
	ID           uint32
	WantAck      bool
	WantResponse bool

	Data     *Data
	User     *User
	Position *Position
}
