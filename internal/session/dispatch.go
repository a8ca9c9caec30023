package session

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/meshctl/internal/directory"
	"github.com/danmuck/meshctl/internal/events"
	"github.com/danmuck/meshctl/internal/observability"
	"github.com/danmuck/meshctl/internal/protocol"
)

// pump reads framed payloads from the transport and feeds them through the
// dispatcher until the context is canceled or the transport fails. It is the
// only goroutine that mutates session state from the inbound side.
func (s *Session) pump(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		payload, err := s.tr.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("transport read failed")
			s.transportFailed(err)
			return
		}
		env, err := s.codec.DecodeFromRadio(payload)
		if err != nil {
			observability.RecordInboundEnvelope("decode_error")
			s.log.Warn().Err(err).Msg("inbound envelope decode failed")
			s.bus.Publish(events.Diagnostic{Message: "inbound envelope decode failed", Err: err})
			continue
		}
		s.dispatch(env)
	}
}

// dispatch routes one inbound envelope by its payload variant. An envelope
// carrying no recognized variant is surfaced as a diagnostic, never an error;
// newer firmware may send payloads this build does not know.
func (s *Session) dispatch(env *protocol.FromRadio) {
	variant := env.Variant()
	observability.RecordInboundEnvelope(variant)
	s.log.Trace().Str("variant", variant).Msg("inbound envelope")

	switch {
	case env.MyInfo != nil:
		s.handleMyInfo(*env.MyInfo)
	case env.RadioConfig != nil:
		s.mu.Lock()
		s.snap.setRadioConfig(*env.RadioConfig)
		s.mu.Unlock()
	case env.NodeInfo != nil:
		s.handleNodeInfo(*env.NodeInfo)
	case env.ConfigComplete != nil:
		s.completeConfigure(env.ConfigComplete.ID)
	case env.Packet != nil:
		s.dispatchPacket(env.Packet)
	case env.Rebooted != nil:
		s.handleRebooted()
	default:
		s.log.Debug().Msg("unrecognized inbound envelope")
		s.bus.Publish(events.Diagnostic{Message: "unrecognized inbound envelope"})
	}
}

func (s *Session) handleMyInfo(info protocol.MyNodeInfo) {
	s.mu.Lock()
	s.snap.setMyInfo(info)
	s.ids.Seed(info.CurrentPacketID)
	s.mu.Unlock()
	s.log.Debug().
		Uint32("node_num", info.NodeNum).
		Uint32("packet_id", info.CurrentPacketID).
		Msg("device identity received")
}

// handleNodeInfo folds a directory row from the handshake dump into the node
// directory. The device's self row also refreshes the owner identity.
func (s *Session) handleNodeInfo(info protocol.NodeInfo) {
	s.dir.UpsertFull(directory.Record{Num: info.Num, User: info.User, Position: info.Position})
	s.mu.Lock()
	if s.snap.haveMyInfo && info.Num == s.snap.nodeNum && info.User != nil {
		s.snap.setOwner(*info.User)
	}
	s.mu.Unlock()
}

// dispatchPacket routes a mesh packet by its payload branch. User and
// position payloads update the directory before the event goes out, so a
// subscriber reacting to the event already sees the merged record.
func (s *Session) dispatchPacket(pkt *protocol.MeshPacket) {
	switch {
	case pkt.Data != nil:
		s.bus.Publish(events.DataPacket{Packet: pkt})
	case pkt.User != nil:
		s.dir.MergeUser(pkt.From, *pkt.User)
		s.bus.Publish(events.UserPacket{From: pkt.From, User: *pkt.User})
	case pkt.Position != nil:
		s.dir.MergePosition(pkt.From, *pkt.Position)
		s.bus.Publish(events.PositionPacket{From: pkt.From, Position: *pkt.Position})
	default:
		s.log.Debug().Uint32("from", pkt.From).Msg("mesh packet with empty payload")
		s.bus.Publish(events.Diagnostic{Message: "mesh packet with empty payload"})
	}
}

// completeConfigure resolves the pending handshake when the echoed id
// matches. Stale or unsolicited completions are ignored; the device may
// replay an old id after a reboot.
func (s *Session) completeConfigure(id uint32) {
	s.mu.Lock()
	if s.configCh == nil || id != s.configID {
		s.mu.Unlock()
		s.log.Debug().Uint32("config_id", id).Msg("stale config completion ignored")
		return
	}
	ch := s.configCh
	s.configCh = nil

	if !s.snap.complete() {
		s.mu.Unlock()
		s.log.Warn().Uint32("config_id", id).Msg("configuration finished with missing fields")
		ch <- ErrIncompleteConfiguration
		return
	}

	nodeNum := s.snap.nodeNum
	s.setStateLocked(StateReady)
	first := !s.firstConfigDone
	s.firstConfigDone = true
	s.mu.Unlock()

	if first {
		s.dir.EnableNotifications()
	}
	s.log.Info().Uint32("node_num", nodeNum).Msg("configuration complete")
	s.bus.Publish(events.ConfigDone{NodeNum: nodeNum})
	ch <- nil
}

// handleRebooted reacts to the device announcing a restart. A ready session
// re-runs the handshake automatically; in any other state the signal is
// surfaced and left to whoever drives the session.
func (s *Session) handleRebooted() {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != StateReady {
		s.log.Debug().Stringer("state", st).Msg("reboot signal outside ready state")
		s.bus.Publish(events.Diagnostic{Message: "device rebooted before session was ready"})
		return
	}
	s.log.Warn().Msg("device rebooted, reconfiguring")
	go s.reconfigureLoop()
}

// reconfigureLoop re-runs the handshake after a reboot. A device that
// reboots in a loop must not spin the session forever, so attempts are
// spaced by backoff and capped; past the cap the session stays connected and
// waits for a manual Configure.
func (s *Session) reconfigureLoop() {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if s.cfg.MaxReconfigureAttempts > 0 && attempt > s.cfg.MaxReconfigureAttempts {
			s.log.Error().Err(lastErr).
				Int("attempts", s.cfg.MaxReconfigureAttempts).
				Msg("automatic reconfiguration gave up")
			s.bus.Publish(events.Diagnostic{Message: "automatic reconfiguration gave up", Err: lastErr})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReconfigureTimeout)
		err := s.Configure(ctx)
		cancel()
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrNotConnected), errors.Is(err, ErrConfigureInFlight):
			// Session was torn down or someone else took over.
			return
		}
		lastErr = err
		delay := s.cfg.Backoff.Delay(attempt, s.rng)
		s.log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("reconfigure attempt failed")
		time.Sleep(delay)
	}
}

// transportFailed tears the session down after a read error. Split from
// Disconnect because the pump goroutine must not wait on itself.
func (s *Session) transportFailed(cause error) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.resetLocked()
	s.pumpCancel = nil
	s.pumpDone = nil
	s.mu.Unlock()

	_ = s.tr.Close()
	s.bus.Publish(events.Diagnostic{Message: "transport failure", Err: cause})
	s.bus.Publish(events.Disconnected{})
}
