package session

import (
	"strings"

	"github.com/danmuck/meshctl/internal/protocol"
)

// deviceSnapshot is the session's view of the connected device, populated
// incrementally during the configuration handshake and cleared on every
// disconnect or reconfigure.
type deviceSnapshot struct {
	nodeNum     uint32
	haveMyInfo  bool
	haveSeed    bool
	radioConfig *protocol.RadioConfig
	owner       *protocol.User
}

// complete reports whether every handshake field arrived: the node number,
// the packet id seed, the radio config, and the owner identity.
func (s *deviceSnapshot) complete() bool {
	return s.haveMyInfo && s.haveSeed && s.radioConfig != nil && s.owner != nil
}

func (s *deviceSnapshot) setMyInfo(info protocol.MyNodeInfo) {
	s.nodeNum = info.NodeNum
	s.haveMyInfo = true
	s.haveSeed = true
}

func (s *deviceSnapshot) setRadioConfig(cfg protocol.RadioConfig) {
	clone := cfg.Clone()
	s.radioConfig = &clone
}

func (s *deviceSnapshot) setOwner(user protocol.User) {
	u := user
	s.owner = &u
}

// mergedRadioConfig returns the held config with partial applied on top.
// The snapshot itself is untouched; callers commit the result only after the
// device accepted it.
func (s *deviceSnapshot) mergedRadioConfig(partial protocol.RadioConfig) protocol.RadioConfig {
	base := protocol.RadioConfig{}
	if s.radioConfig != nil {
		base = s.radioConfig.Clone()
	}
	if partial.Settings != nil {
		base = partial.Clone()
	}
	return base
}

// mergedOwner returns the held owner identity with partial's non-empty
// fields applied on top.
func (s *deviceSnapshot) mergedOwner(partial protocol.User) protocol.User {
	base := protocol.User{}
	if s.owner != nil {
		base = *s.owner
	}
	if strings.TrimSpace(partial.ID) != "" {
		base.ID = partial.ID
	}
	if strings.TrimSpace(partial.LongName) != "" {
		base.LongName = partial.LongName
	}
	if strings.TrimSpace(partial.ShortName) != "" {
		base.ShortName = partial.ShortName
	}
	if strings.TrimSpace(partial.HWModel) != "" {
		base.HWModel = partial.HWModel
	}
	return base
}
