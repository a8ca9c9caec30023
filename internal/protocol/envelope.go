package protocol

// WantConfig asks the device to stream its configuration state.
// ID is echoed back in ConfigComplete when the dump is finished.
type WantConfig struct {
	ID uint32
}

// ConfigComplete closes the configuration dump started by WantConfig.
type ConfigComplete struct {
	ID uint32
}

// Rebooted announces that the device restarted and lost session state.
type Rebooted struct{}

// ToRadio is the host->device envelope. Exactly one payload field is set.
type ToRadio struct {
	Packet         *MeshPacket
	WantConfig     *WantConfig
	SetRadioConfig *RadioConfig
	SetOwner       *User
}

// Validate checks the exactly-one-variant invariant.
func (t *ToRadio) Validate() error {
	n := 0
	if t.Packet != nil {
		n++
	}
	if t.WantConfig != nil {
		n++
	}
	if t.SetRadioConfig != nil {
		n++
	}
	if t.SetOwner != nil {
		n++
	}
	switch {
	case n == 0:
		return ErrEmptyEnvelope
	case n > 1:
		return ErrAmbiguousEnvelope
	}
	return nil
}

// Variant names the populated payload for logging and metrics.
func (t *ToRadio) Variant() string {
	switch {
	case t.Packet != nil:
		return "packet"
	case t.WantConfig != nil:
		return "want_config"
	case t.SetRadioConfig != nil:
		return "set_radio_config"
	case t.SetOwner != nil:
		return "set_owner"
	default:
		return "empty"
	}
}

// FromRadio is the device->host envelope. At most one payload field is set;
// an envelope with all fields nil is an unrecognized variant and is
// deliberately representable so newer devices stay compatible.
type FromRadio struct {
	MyInfo         *MyNodeInfo
	RadioConfig    *RadioConfig
	NodeInfo       *NodeInfo
	ConfigComplete *ConfigComplete
	Packet         *MeshPacket
	Rebooted       *Rebooted
}

// Variant names the populated payload, or "unrecognized" when none is set.
func (f *FromRadio) Variant() string {
	switch {
	case f.MyInfo != nil:
		return "my_info"
	case f.RadioConfig != nil:
		return "radio_config"
	case f.NodeInfo != nil:
		return "node_info"
	case f.ConfigComplete != nil:
		return "config_complete"
	case f.Packet != nil:
		return "packet"
	case f.Rebooted != nil:
		return "rebooted"
	default:
		return "unrecognized"
	}
}

// Codec translates envelopes to and from their wire encoding.
// Implementations must treat unknown inbound variants as the unrecognized
// FromRadio, never as an error.
type Codec interface {
	EncodeToRadio(env *ToRadio) ([]byte, error)
	DecodeFromRadio(payload []byte) (*FromRadio, error)
}
