// Package transport carries framed envelope payloads over a byte stream.
//
// Ownership boundary:
// - the Transport contract consumed by internal/session
// - the TCP implementation for network-attached devices
//
// Serial and BLE links satisfy the same contract from outside this module.
package transport

import "context"

// Transport is one byte-stream link to a device. Send and Recv move whole
// envelope payloads; framing is the implementation's concern. Recv blocks
// until a payload arrives, the context ends, or the link fails; any Recv
// error means the link is unusable.
type Transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, payload []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}
