package session

import (
	"errors"
	"testing"

	"github.com/danmuck/meshctl/internal/testutil/testlog"
)

func TestPacketIDAllocatorRequiresSeed(t *testing.T) {
	testlog.Start(t)

	var a PacketIDAllocator
	if _, err := a.Next(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Next() before seed = %v, want ErrNotConfigured", err)
	}
}

func TestPacketIDAllocatorIncrements(t *testing.T) {
	testlog.Start(t)

	var a PacketIDAllocator
	a.Seed(100)
	for want := uint32(101); want <= 105; want++ {
		got, err := a.Next()
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		if got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
}

func TestPacketIDAllocatorReset(t *testing.T) {
	testlog.Start(t)

	var a PacketIDAllocator
	a.Seed(7)
	if _, err := a.Next(); err != nil {
		t.Fatalf("Next() failed: %v", err)
	}

	a.Reset()
	if _, err := a.Next(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Next() after reset = %v, want ErrNotConfigured", err)
	}

	a.Seed(200)
	got, err := a.Next()
	if err != nil {
		t.Fatalf("Next() after reseed failed: %v", err)
	}
	if got != 201 {
		t.Fatalf("Next() after reseed = %d, want 201", got)
	}
}
