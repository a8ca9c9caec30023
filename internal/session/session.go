package session

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/meshctl/internal/directory"
	"github.com/danmuck/meshctl/internal/events"
	"github.com/danmuck/meshctl/internal/logging"
	"github.com/danmuck/meshctl/internal/observability"
	"github.com/danmuck/meshctl/internal/protocol"
	"github.com/danmuck/meshctl/internal/transport"
)

// DestinationBroadcast addresses every node on the mesh. The device's "^all"
// spelling is accepted as an alias.
const (
	DestinationBroadcast      = "broadcast"
	destinationBroadcastAlias = "^all"
)

// Session is one engine instance bound to one device. All exported methods
// are safe for concurrent use; inbound envelopes are dispatched by a single
// goroutine so handler effects never interleave.
type Session struct {
	cfg   Config
	codec protocol.Codec
	tr    transport.Transport
	bus   *events.Bus
	dir   *directory.Directory
	ids   PacketIDAllocator
	log   zerolog.Logger
	rng   *rand.Rand

	mu              sync.Mutex
	state           State
	connecting      bool
	snap            deviceSnapshot
	configID        uint32
	configCh        chan error
	firstConfigDone bool

	sendMu sync.Mutex

	pumpCancel context.CancelFunc
	pumpDone   chan struct{}
}

func New(cfg Config, codec protocol.Codec, tr transport.Transport) *Session {
	cfg = cfg.WithDefaults()
	bus := events.NewBus(cfg.EventBuffer)
	return &Session{
		cfg:   cfg,
		codec: codec,
		tr:    tr,
		bus:   bus,
		dir:   directory.New(bus),
		log:   logging.Component("session"),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Events exposes the session's event bus.
func (s *Session) Events() *events.Bus { return s.bus }

// Directory exposes the node directory. It persists across reconnects.
func (s *Session) Directory() *directory.Directory { return s.dir }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsReady() bool { return s.State() == StateReady }

// NodeNum returns the device's own node number once the handshake reported it.
func (s *Session) NodeNum() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.nodeNum, s.snap.haveMyInfo
}

// Owner returns the device's own identity once known.
func (s *Session) Owner() (protocol.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.owner == nil {
		return protocol.User{}, false
	}
	return *s.snap.owner, true
}

// RadioConfig returns a copy of the device settings once known.
func (s *Session) RadioConfig() (protocol.RadioConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.radioConfig == nil {
		return protocol.RadioConfig{}, false
	}
	return s.snap.radioConfig.Clone(), true
}

// Connect establishes the transport and starts the inbound dispatch loop.
// Unless autoConfigure is false it immediately runs the configuration
// handshake, so a nil return means the session is Ready.
func (s *Session) Connect(ctx context.Context, autoConfigure bool) error {
	s.mu.Lock()
	if s.state != StateDisconnected || s.connecting {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	// Marks the dial in progress so a concurrent Connect is rejected
	// instead of racing a second dial.
	s.connecting = true
	s.mu.Unlock()

	err := s.tr.Connect(ctx)

	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.connecting = false
	if err != nil {
		s.mu.Unlock()
		cancel()
		return err
	}
	s.setStateLocked(StateConnected)
	s.pumpCancel = cancel
	s.pumpDone = done
	s.mu.Unlock()

	s.log.Info().Msg("connected")
	s.bus.Publish(events.Connected{})
	go s.pump(pumpCtx, done)

	if autoConfigure {
		return s.Configure(ctx)
	}
	return nil
}

// Disconnect tears the session down from any state. The node directory is
// kept; it is mesh-wide knowledge, not session state.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.resetLocked()
	cancel := s.pumpCancel
	done := s.pumpDone
	s.pumpCancel = nil
	s.pumpDone = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := s.tr.Close()
	if done != nil {
		<-done
	}
	s.log.Info().Msg("disconnected")
	s.bus.Publish(events.Disconnected{})
	return err
}

// Configure runs the configuration handshake: clear the device snapshot,
// send want_config, then wait until the dispatch loop observes the matching
// config_complete. The engine keeps no timer of its own; cancellation and
// deadlines come from ctx. A canceled handshake leaves the machine in
// Connected so the caller can retry.
func (s *Session) Configure(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.configCh != nil {
		s.mu.Unlock()
		return ErrConfigureInFlight
	}
	s.setStateLocked(StateConfiguring)
	s.snap = deviceSnapshot{}
	s.ids.Reset()
	s.configID++
	id := s.configID
	ch := make(chan error, 1)
	s.configCh = ch
	s.mu.Unlock()

	s.log.Debug().Uint32("config_id", id).Msg("requesting configuration")
	if err := s.writeEnvelope(ctx, &protocol.ToRadio{WantConfig: &protocol.WantConfig{ID: id}}); err != nil {
		s.abandonConfigure(ch)
		observability.RecordHandshake("send_failed")
		return err
	}

	select {
	case <-ctx.Done():
		s.abandonConfigure(ch)
		observability.RecordHandshake("canceled")
		return ctx.Err()
	case err := <-ch:
		if err != nil {
			observability.RecordHandshake("incomplete")
			return err
		}
		observability.RecordHandshake("ok")
		return nil
	}
}

// abandonConfigure rolls an unanswered handshake back to Connected so a
// retry needs no manual reset.
func (s *Session) abandonConfigure(ch chan error) {
	s.mu.Lock()
	if s.configCh == ch {
		s.configCh = nil
		if s.state == StateConfiguring {
			s.setStateLocked(StateConnected)
		}
	}
	s.mu.Unlock()
}

// SendText sends a plain text message.
func (s *Session) SendText(ctx context.Context, text, dest string, wantAck, wantResponse bool) error {
	return s.SendData(ctx, []byte(text), dest, protocol.PortNumText, wantAck, wantResponse)
}

// SendData sends an application payload tagged with portNum.
func (s *Session) SendData(ctx context.Context, payload []byte, dest string, portNum uint32, wantAck, wantResponse bool) error {
	pkt := &protocol.MeshPacket{
		WantResponse: wantResponse,
		Data:         &protocol.Data{PortNum: portNum, Payload: payload},
	}
	return s.SendPacket(ctx, pkt, dest, wantAck)
}

// SendPosition reports a position fix to the mesh.
func (s *Session) SendPosition(ctx context.Context, pos protocol.Position, dest string, wantAck, wantResponse bool) error {
	p := pos
	pkt := &protocol.MeshPacket{WantResponse: wantResponse, Position: &p}
	return s.SendPacket(ctx, pkt, dest, wantAck)
}

// SendPacket stamps pkt with the session's source address, the resolved
// destination, and a fresh packet id when the caller supplied none, then
// hands it to the codec for transmission. Requires Ready.
func (s *Session) SendPacket(ctx context.Context, pkt *protocol.MeshPacket, dest string, wantAck bool) error {
	from, err := s.requireReady()
	if err != nil {
		return err
	}
	to, err := s.resolveDestination(dest)
	if err != nil {
		return err
	}
	out := *pkt
	out.From = from
	out.To = to
	out.WantAck = wantAck
	if out.ID == 0 {
		id, err := s.ids.Next()
		if err != nil {
			return err
		}
		out.ID = id
	}
	return s.writeEnvelope(ctx, &protocol.ToRadio{Packet: &out})
}

// SetRadioConfig merges partial over the held settings snapshot and sends
// the result to the device. The snapshot is committed only after the write
// succeeded.
func (s *Session) SetRadioConfig(ctx context.Context, partial protocol.RadioConfig) error {
	if _, err := s.requireReady(); err != nil {
		return err
	}
	s.mu.Lock()
	merged := s.snap.mergedRadioConfig(partial)
	s.mu.Unlock()
	if err := s.writeEnvelope(ctx, &protocol.ToRadio{SetRadioConfig: &merged}); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.setRadioConfig(merged)
	s.mu.Unlock()
	return nil
}

// SetOwnerIdentity merges the non-empty fields of partial over the held
// owner identity and sends the result to the device.
func (s *Session) SetOwnerIdentity(ctx context.Context, partial protocol.User) error {
	if _, err := s.requireReady(); err != nil {
		return err
	}
	s.mu.Lock()
	merged := s.snap.mergedOwner(partial)
	s.mu.Unlock()
	if err := s.writeEnvelope(ctx, &protocol.ToRadio{SetOwner: &merged}); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.setOwner(merged)
	s.mu.Unlock()
	return nil
}

func (s *Session) requireReady() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDisconnected:
		return 0, ErrNotConnected
	case StateReady:
		return s.snap.nodeNum, nil
	default:
		return 0, ErrDeviceNotReady
	}
}

func (s *Session) resolveDestination(dest string) (uint32, error) {
	trimmed := strings.TrimSpace(dest)
	switch strings.ToLower(trimmed) {
	case "", DestinationBroadcast, destinationBroadcastAlias:
		return protocol.BroadcastNodeNum, nil
	}
	if strings.HasPrefix(trimmed, "!") {
		num, ok := s.dir.FindNumByExternalID(trimmed)
		if !ok {
			return 0, fmt.Errorf("%w: unknown node id %q", ErrInvalidDestination, trimmed)
		}
		return num, nil
	}
	num, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDestination, trimmed)
	}
	return uint32(num), nil
}

// writeEnvelope serializes env and writes it. The send mutex keeps envelope
// writes whole; a second send waits instead of interleaving.
func (s *Session) writeEnvelope(ctx context.Context, env *protocol.ToRadio) error {
	payload, err := s.codec.EncodeToRadio(env)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.tr.Send(ctx, payload); err != nil {
		return err
	}
	observability.RecordOutboundEnvelope(env.Variant())
	return nil
}

// resetLocked clears session-scoped state. Caller holds s.mu.
func (s *Session) resetLocked() {
	s.setStateLocked(StateDisconnected)
	s.snap = deviceSnapshot{}
	s.ids.Reset()
	if s.configCh != nil {
		s.configCh <- ErrNotConnected
		s.configCh = nil
	}
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	observability.RecordSessionState(int(st))
}
