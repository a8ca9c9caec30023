package frame

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/meshctl/internal/testutil/testlog"
)

func TestWriteReadRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	if err := Write(&buf, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	got, err := Read(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("unexpected payload: %x", got)
	}
}

func TestReadSkipsLineNoise(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	buf.WriteString("boot: radio init ok\r\n")
	buf.WriteByte(Start1) // stray first magic byte without its partner
	buf.WriteString("more noise")
	if err := Write(&buf, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	got, err := Read(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, []byte{0xAA, 0xBB}) {
		t.Fatalf("unexpected payload: %x", got)
	}
}

func TestReadResyncsAfterBogusLength(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	// Magic pair followed by an impossible length, then a real frame.
	buf.Write([]byte{Start1, Start2, 0xFF, 0xFF})
	if err := Write(&buf, []byte{0x10}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	got, err := Read(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, []byte{0x10}) {
		t.Fatalf("unexpected payload: %x", got)
	}
}

func TestReadTruncatedStream(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	buf.Write([]byte{Start1, Start2, 0x00, 0x08, 0x01, 0x02})
	if _, err := Read(bufio.NewReader(&buf)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}

func TestWriteRejectsOversizedPayload(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := Write(&buf, make([]byte, MaxPayload+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestBackToBackFrames(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := Write(&buf, []byte{0x01}); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := Write(&buf, []byte{0x02, 0x03}); err != nil {
		t.Fatalf("write second: %v", err)
	}
	r := bufio.NewReader(&buf)
	first, err := Read(r)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	second, err := Read(r)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if !bytes.Equal(first, []byte{0x01}) || !bytes.Equal(second, []byte{0x02, 0x03}) {
		t.Fatalf("unexpected payloads: %x %x", first, second)
	}
}
