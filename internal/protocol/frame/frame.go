// Package frame delimits encoded envelopes on the byte stream.
//
// One frame is: magic pair 0x94 0xC3, big-endian u16 payload length, payload.
// Devices share the stream with boot logs and other line noise, so the reader
// resynchronizes by scanning for the magic pair instead of failing.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

const (
	Start1 byte = 0x94
	Start2 byte = 0xC3

	// MaxPayload bounds one encoded envelope. A length field above this is
	// treated as line noise and skipped during resync.
	MaxPayload = 512

	headerLen = 4
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload exceeds max frame size")
	ErrEmptyPayload    = errors.New("frame: empty payload")
)

// Write emits one frame for payload.
func Write(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if len(payload) > MaxPayload {
		return ErrPayloadTooLarge
	}
	header := [headerLen]byte{Start1, Start2}
	binary.BigEndian.PutUint16(header[2:], uint16(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Read returns the next well-formed frame payload, skipping any bytes that
// do not form a valid frame. It only fails when the underlying reader fails.
func Read(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != Start1 {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != Start2 {
			if b == Start1 {
				_ = r.UnreadByte()
			}
			continue
		}
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, err
		}
		n := int(binary.BigEndian.Uint16(lenBuf[:]))
		if n == 0 || n > MaxPayload {
			// Bogus length: the magic pair was part of other traffic.
			continue
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
}
