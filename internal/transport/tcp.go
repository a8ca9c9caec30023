package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/meshctl/internal/protocol/frame"
)

// DefaultTCPPort is the device's network API port.
const DefaultTCPPort = "4403"

var ErrNotDialed = errors.New("transport: not connected")

// TCPConfig bounds dial and write times. Reads have no implicit deadline;
// the device is silent between envelopes and that is not a failure.
type TCPConfig struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		DialTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// TCP connects to a device's network API and frames envelopes on the stream.
type TCP struct {
	addr string
	cfg  TCPConfig

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewTCP prepares a transport for addr. A bare host gets the default port.
func NewTCP(addr string, cfg TCPConfig) *TCP {
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort(addr, DefaultTCPPort)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultTCPConfig().DialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultTCPConfig().WriteTimeout
	}
	return &TCP{addr: addr, cfg: cfg}
}

func (t *TCP) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.mu.Unlock()
	return nil
}

func (t *TCP) Send(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotDialed
	}
	deadline := time.Now().Add(t.cfg.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return frame.Write(conn, payload)
}

func (t *TCP) Recv(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn, reader := t.conn, t.reader
	t.mu.Unlock()
	if conn == nil {
		return nil, ErrNotDialed
	}
	deadline := time.Time{}
	if ctxDeadline, ok := ctx.Deadline(); ok {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return frame.Read(reader)
}

func (t *TCP) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.reader = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
