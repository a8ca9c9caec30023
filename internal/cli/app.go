// Package cli drives one device session from the command line: connect,
// configure, optionally send, then watch events until interrupted.
package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/meshctl/internal/config"
	"github.com/danmuck/meshctl/internal/events"
	"github.com/danmuck/meshctl/internal/logging"
	"github.com/danmuck/meshctl/internal/protocol"
	"github.com/danmuck/meshctl/internal/protocol/wire"
	"github.com/danmuck/meshctl/internal/session"
	"github.com/danmuck/meshctl/internal/transport"
)

// RunOptions selects what one invocation does after the session is Ready.
type RunOptions struct {
	SendText     string
	Dest         string
	WantAck      bool
	WantResponse bool
	Watch        bool
}

type App struct {
	cfg config.Config
	log zerolog.Logger
}

func New(cfg config.Config) *App {
	return &App{cfg: cfg, log: logging.Component("cli")}
}

func (a *App) Run(ctx context.Context, opts RunOptions) error {
	tr := transport.NewTCP(a.cfg.DeviceAddr(), a.cfg.TCPConfig())
	s := session.New(a.cfg.SessionConfig(), wire.Codec{}, tr)
	sub, cancel := s.Events().Subscribe()
	defer cancel()

	a.log.Info().Str("device", a.cfg.DeviceAddr()).Msg("connecting")
	if err := s.Connect(ctx, true); err != nil {
		return err
	}
	defer func() { _ = s.Disconnect() }()

	a.printDirectory(s)

	if opts.SendText != "" {
		if err := s.SendText(ctx, opts.SendText, opts.Dest, opts.WantAck, opts.WantResponse); err != nil {
			return err
		}
		a.log.Info().Str("dest", opts.Dest).Msg("message sent")
	}

	if !opts.Watch {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Metrics.Addr != "" {
		g.Go(func() error { return a.serveMetrics(ctx) })
	}
	g.Go(func() error { return a.watchEvents(ctx, sub) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) watchEvents(ctx context.Context, sub <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sub:
			a.printEvent(ev)
		}
	}
}

func (a *App) printEvent(ev events.Event) {
	switch ev := ev.(type) {
	case events.ConfigDone:
		a.log.Info().Uint32("node_num", ev.NodeNum).Msg("session ready")
	case events.NodeListChanged:
		a.log.Info().Uint32("node_num", ev.Num).Msg("node updated")
	case events.DataPacket:
		e := a.log.Info().
			Uint32("from", ev.Packet.From).
			Uint32("port", ev.Packet.Data.PortNum)
		if ev.Packet.Data.PortNum == protocol.PortNumText {
			e = e.Str("text", string(ev.Packet.Data.Payload))
		} else {
			e = e.Int("bytes", len(ev.Packet.Data.Payload))
		}
		e.Msg("message received")
	case events.UserPacket:
		a.log.Info().Uint32("from", ev.From).Str("name", ev.User.LongName).Msg("node identity")
	case events.PositionPacket:
		a.log.Info().
			Uint32("from", ev.From).
			Int32("lat", ev.Position.LatitudeI).
			Int32("lon", ev.Position.LongitudeI).
			Msg("node position")
	case events.Diagnostic:
		a.log.Warn().Err(ev.Err).Msg(ev.Message)
	case events.Disconnected:
		a.log.Warn().Msg("session disconnected")
	default:
		a.log.Debug().Stringer("kind", ev.Kind()).Msg("event")
	}
}

func (a *App) printDirectory(s *session.Session) {
	for num, rec := range s.Directory().All() {
		e := a.log.Info().Uint32("node_num", num)
		if rec.User != nil {
			e = e.Str("id", rec.User.ID).Str("name", rec.User.LongName)
		}
		if rec.Position != nil {
			e = e.Int32("lat", rec.Position.LatitudeI).Int32("lon", rec.Position.LongitudeI)
		}
		e.Msg("known node")
	}
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.Info().Str("addr", a.cfg.Metrics.Addr).Msg("serving metrics")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
