package wire

import (
	"github.com/danmuck/meshctl/internal/protocol"
)

// Envelope variant tags. Host->device tags live below 0x10.
const (
	tagPacket         byte = 0x01
	tagWantConfig     byte = 0x02
	tagSetRadioConfig byte = 0x03
	tagSetOwner       byte = 0x04

	tagMyInfo         byte = 0x10
	tagRadioConfig    byte = 0x11
	tagNodeInfo       byte = 0x12
	tagConfigComplete byte = 0x13
	tagRebooted       byte = 0x14
)

// Field ids within each payload.
const (
	fieldUserID        uint16 = 1
	fieldUserLongName  uint16 = 2
	fieldUserShortName uint16 = 3
	fieldUserHWModel   uint16 = 4

	fieldPosLatitudeI  uint16 = 1
	fieldPosLongitudeI uint16 = 2
	fieldPosAltitude   uint16 = 3
	fieldPosTime       uint16 = 4

	fieldDataPortNum uint16 = 1
	fieldDataPayload uint16 = 2

	fieldPacketFrom         uint16 = 1
	fieldPacketTo           uint16 = 2
	fieldPacketID           uint16 = 3
	fieldPacketWantAck      uint16 = 4
	fieldPacketData         uint16 = 5
	fieldPacketUser         uint16 = 6
	fieldPacketPosition     uint16 = 7
	fieldPacketWantResponse uint16 = 8

	fieldNodeNum      uint16 = 1
	fieldNodeUser     uint16 = 2
	fieldNodePosition uint16 = 3

	fieldMyNodeNum  uint16 = 1
	fieldMyPacketID uint16 = 2

	fieldConfigSettings uint16 = 1

	fieldConfigID uint16 = 1
)

// Codec implements protocol.Codec. It is stateless and safe for concurrent use.
// Both directions are provided so a simulated device can share the encoding.
type Codec struct{}

func (Codec) EncodeToRadio(env *protocol.ToRadio) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	switch {
	case env.Packet != nil:
		return encodeEnvelope(tagPacket, packetFields(env.Packet)), nil
	case env.WantConfig != nil:
		return encodeEnvelope(tagWantConfig, []field{u32Field(fieldConfigID, env.WantConfig.ID)}), nil
	case env.SetRadioConfig != nil:
		return encodeEnvelope(tagSetRadioConfig, configFields(env.SetRadioConfig)), nil
	default:
		return encodeEnvelope(tagSetOwner, userFields(env.SetOwner)), nil
	}
}

func (Codec) DecodeFromRadio(payload []byte) (*protocol.FromRadio, error) {
	tag, fields, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	env := &protocol.FromRadio{}
	switch tag {
	case tagMyInfo:
		env.MyInfo, err = parseMyInfo(fields)
	case tagRadioConfig:
		env.RadioConfig, err = parseConfig(fields)
	case tagNodeInfo:
		env.NodeInfo, err = parseNodeInfo(fields)
	case tagConfigComplete:
		var id uint32
		id, err = parseConfigID(fields)
		env.ConfigComplete = &protocol.ConfigComplete{ID: id}
	case tagPacket:
		env.Packet, err = parsePacket(fields)
	case tagRebooted:
		env.Rebooted = &protocol.Rebooted{}
	default:
		// Unknown variant: representable, never an error.
	}
	if err != nil {
		return nil, err
	}
	return env, nil
}

// EncodeFromRadio encodes a device->host envelope. Used by simulated devices
// and tests; real devices produce these frames themselves.
func (Codec) EncodeFromRadio(env *protocol.FromRadio) ([]byte, error) {
	switch {
	case env.MyInfo != nil:
		return encodeEnvelope(tagMyInfo, []field{
			u32Field(fieldMyNodeNum, env.MyInfo.NodeNum),
			u32Field(fieldMyPacketID, env.MyInfo.CurrentPacketID),
		}), nil
	case env.RadioConfig != nil:
		return encodeEnvelope(tagRadioConfig, configFields(env.RadioConfig)), nil
	case env.NodeInfo != nil:
		fields := []field{u32Field(fieldNodeNum, env.NodeInfo.Num)}
		if env.NodeInfo.User != nil {
			fields = append(fields, bytesField(fieldNodeUser, encodeFields(userFields(env.NodeInfo.User))))
		}
		if env.NodeInfo.Position != nil {
			fields = append(fields, bytesField(fieldNodePosition, encodeFields(positionFields(env.NodeInfo.Position))))
		}
		return encodeEnvelope(tagNodeInfo, fields), nil
	case env.ConfigComplete != nil:
		return encodeEnvelope(tagConfigComplete, []field{u32Field(fieldConfigID, env.ConfigComplete.ID)}), nil
	case env.Packet != nil:
		return encodeEnvelope(tagPacket, packetFields(env.Packet)), nil
	case env.Rebooted != nil:
		return encodeEnvelope(tagRebooted, nil), nil
	default:
		return nil, protocol.ErrEmptyEnvelope
	}
}

// DecodeToRadio decodes a host->device envelope, the counterpart of
// EncodeToRadio for simulated devices.
func (Codec) DecodeToRadio(payload []byte) (*protocol.ToRadio, error) {
	tag, fields, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	env := &protocol.ToRadio{}
	switch tag {
	case tagPacket:
		env.Packet, err = parsePacket(fields)
	case tagWantConfig:
		var id uint32
		id, err = parseConfigID(fields)
		env.WantConfig = &protocol.WantConfig{ID: id}
	case tagSetRadioConfig:
		env.SetRadioConfig, err = parseConfig(fields)
	case tagSetOwner:
		env.SetOwner, err = parseUser(fields)
	default:
		return nil, protocol.ErrEmptyEnvelope
	}
	if err != nil {
		return nil, err
	}
	return env, nil
}

func encodeEnvelope(tag byte, fields []field) []byte {
	return append([]byte{tag}, encodeFields(fields)...)
}

func decodeEnvelope(payload []byte) (byte, []field, error) {
	if len(payload) == 0 {
		return 0, nil, ErrEmptyPayload
	}
	fields, err := parseFields(payload[1:])
	if err != nil {
		return 0, nil, err
	}
	return payload[0], fields, nil
}

func encodeFields(fields []field) []byte {
	var buf []byte
	for _, f := range fields {
		buf = appendField(buf, f)
	}
	return buf
}

func userFields(u *protocol.User) []field {
	return []field{
		strField(fieldUserID, u.ID),
		strField(fieldUserLongName, u.LongName),
		strField(fieldUserShortName, u.ShortName),
		strField(fieldUserHWModel, u.HWModel),
	}
}

func positionFields(p *protocol.Position) []field {
	return []field{
		i32Field(fieldPosLatitudeI, p.LatitudeI),
		i32Field(fieldPosLongitudeI, p.LongitudeI),
		i32Field(fieldPosAltitude, p.Altitude),
		u32Field(fieldPosTime, p.Time),
	}
}

func configFields(c *protocol.RadioConfig) []field {
	return []field{bytesField(fieldConfigSettings, c.Settings)}
}

func packetFields(p *protocol.MeshPacket) []field {
	fields := []field{
		u32Field(fieldPacketFrom, p.From),
		u32Field(fieldPacketTo, p.To),
		u32Field(fieldPacketID, p.ID),
		boolField(fieldPacketWantAck, p.WantAck),
		boolField(fieldPacketWantResponse, p.WantResponse),
	}
	switch {
	case p.Data != nil:
		data := []field{
			u32Field(fieldDataPortNum, p.Data.PortNum),
			bytesField(fieldDataPayload, p.Data.Payload),
		}
		fields = append(fields, bytesField(fieldPacketData, encodeFields(data)))
	case p.User != nil:
		fields = append(fields, bytesField(fieldPacketUser, encodeFields(userFields(p.User))))
	case p.Position != nil:
		fields = append(fields, bytesField(fieldPacketPosition, encodeFields(positionFields(p.Position))))
	}
	return fields
}

func parseUser(fields []field) (*protocol.User, error) {
	u := &protocol.User{}
	var err error
	if f, ok := findField(fields, fieldUserID); ok {
		if u.ID, err = f.str(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldUserLongName); ok {
		if u.LongName, err = f.str(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldUserShortName); ok {
		if u.ShortName, err = f.str(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldUserHWModel); ok {
		if u.HWModel, err = f.str(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func parsePosition(fields []field) (*protocol.Position, error) {
	p := &protocol.Position{}
	var err error
	if f, ok := findField(fields, fieldPosLatitudeI); ok {
		if p.LatitudeI, err = f.i32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPosLongitudeI); ok {
		if p.LongitudeI, err = f.i32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPosAltitude); ok {
		if p.Altitude, err = f.i32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPosTime); ok {
		if p.Time, err = f.u32(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func parseConfig(fields []field) (*protocol.RadioConfig, error) {
	c := &protocol.RadioConfig{}
	if f, ok := findField(fields, fieldConfigSettings); ok {
		settings, err := f.bytes()
		if err != nil {
			return nil, err
		}
		c.Settings = settings
	}
	return c, nil
}

func parseConfigID(fields []field) (uint32, error) {
	f, ok := findField(fields, fieldConfigID)
	if !ok {
		return 0, nil
	}
	return f.u32()
}

func parseMyInfo(fields []field) (*protocol.MyNodeInfo, error) {
	info := &protocol.MyNodeInfo{}
	var err error
	if f, ok := findField(fields, fieldMyNodeNum); ok {
		if info.NodeNum, err = f.u32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldMyPacketID); ok {
		if info.CurrentPacketID, err = f.u32(); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func parseNodeInfo(fields []field) (*protocol.NodeInfo, error) {
	info := &protocol.NodeInfo{}
	var err error
	if f, ok := findField(fields, fieldNodeNum); ok {
		if info.Num, err = f.u32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldNodeUser); ok {
		raw, err := f.bytes()
		if err != nil {
			return nil, err
		}
		sub, err := parseFields(raw)
		if err != nil {
			return nil, err
		}
		if info.User, err = parseUser(sub); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldNodePosition); ok {
		raw, err := f.bytes()
		if err != nil {
			return nil, err
		}
		sub, err := parseFields(raw)
		if err != nil {
			return nil, err
		}
		if info.Position, err = parsePosition(sub); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func parsePacket(fields []field) (*protocol.MeshPacket, error) {
	p := &protocol.MeshPacket{}
	var err error
	if f, ok := findField(fields, fieldPacketFrom); ok {
		if p.From, err = f.u32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPacketTo); ok {
		if p.To, err = f.u32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPacketID); ok {
		if p.ID, err = f.u32(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPacketWantAck); ok {
		if p.WantAck, err = f.boolean(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPacketWantResponse); ok {
		if p.WantResponse, err = f.boolean(); err != nil {
			return nil, err
		}
	}
	if f, ok := findField(fields, fieldPacketData); ok {
		raw, err := f.bytes()
		if err != nil {
			return nil, err
		}
		sub, err := parseFields(raw)
		if err != nil {
			return nil, err
		}
		data := &protocol.Data{}
		if df, ok := findField(sub, fieldDataPortNum); ok {
			if data.PortNum, err = df.u32(); err != nil {
				return nil, err
			}
		}
		if df, ok := findField(sub, fieldDataPayload); ok {
			if data.Payload, err = df.bytes(); err != nil {
				return nil, err
			}
		}
		p.Data = data
		return p, nil
	}
	if f, ok := findField(fields, fieldPacketUser); ok {
		raw, err := f.bytes()
		if err != nil {
			return nil, err
		}
		sub, err := parseFields(raw)
		if err != nil {
			return nil, err
		}
		if p.User, err = parseUser(sub); err != nil {
			return nil, err
		}
		return p, nil
	}
	if f, ok := findField(fields, fieldPacketPosition); ok {
		raw, err := f.bytes()
		if err != nil {
			return nil, err
		}
		sub, err := parseFields(raw)
		if err != nil {
			return nil, err
		}
		if p.Position, err = parsePosition(sub); err != nil {
			return nil, err
		}
	}
	return p, nil
}
