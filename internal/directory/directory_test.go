package directory

import (
	"testing"

	"github.com/danmuck/meshctl/internal/events"
	"github.com/danmuck/meshctl/internal/protocol"
	"github.com/danmuck/meshctl/internal/testutil/testlog"
)

func TestMergeCreatesRecordFromPositionAlone(t *testing.T) {
	testlog.Start(t)
	d := New(nil)
	pos := protocol.Position{LatitudeI: 100, LongitudeI: 200, Altitude: 5, Time: 1700000000}
	d.MergePosition(9, pos)

	rec, ok := d.Get(9)
	if !ok {
		t.Fatalf("record for 9 should exist")
	}
	if rec.User != nil {
		t.Fatalf("identity should be empty: %+v", rec.User)
	}
	if rec.Position == nil || rec.Position.LatitudeI != 100 {
		t.Fatalf("unexpected position: %+v", rec.Position)
	}

	// A later identity merge must preserve the position.
	d.MergeUser(9, protocol.User{ID: "!09", LongName: "nine"})
	rec, _ = d.Get(9)
	if rec.User == nil || rec.User.LongName != "nine" {
		t.Fatalf("unexpected user: %+v", rec.User)
	}
	if rec.Position == nil || rec.Position.LatitudeI != 100 {
		t.Fatalf("position lost by identity merge: %+v", rec.Position)
	}
}

func TestLastMergeWinsPerField(t *testing.T) {
	testlog.Start(t)
	d := New(nil)
	d.MergeUser(1, protocol.User{LongName: "first"})
	d.MergePosition(2, protocol.Position{Altitude: 1})
	d.MergeUser(1, protocol.User{LongName: "second"})
	d.MergePosition(1, protocol.Position{Altitude: 10})
	d.MergePosition(1, protocol.Position{Altitude: 20})
	d.MergeUser(2, protocol.User{LongName: "other"})

	rec, _ := d.Get(1)
	if rec.User.LongName != "second" || rec.Position.Altitude != 20 {
		t.Fatalf("unexpected record 1: %+v", rec)
	}
	rec, _ = d.Get(2)
	if rec.User.LongName != "other" || rec.Position.Altitude != 1 {
		t.Fatalf("unexpected record 2: %+v", rec)
	}
}

func TestUpsertFullReplaces(t *testing.T) {
	testlog.Start(t)
	d := New(nil)
	d.MergePosition(3, protocol.Position{Altitude: 7})
	d.UpsertFull(Record{Num: 3, User: &protocol.User{LongName: "replacement"}})

	rec, _ := d.Get(3)
	if rec.Position != nil {
		t.Fatalf("upsert must fully replace, position survived: %+v", rec)
	}
	if rec.User == nil || rec.User.LongName != "replacement" {
		t.Fatalf("unexpected user: %+v", rec)
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	testlog.Start(t)
	d := New(nil)
	d.Remove(99)
	if d.Len() != 0 {
		t.Fatalf("unexpected directory size: %d", d.Len())
	}
}

func TestFindNumByExternalIDTieBreak(t *testing.T) {
	testlog.Start(t)
	d := New(nil)
	d.MergeUser(20, protocol.User{ID: "!dup"})
	d.MergeUser(5, protocol.User{ID: "!dup"})
	d.MergeUser(11, protocol.User{ID: "!other"})

	num, ok := d.FindNumByExternalID("!dup")
	if !ok || num != 5 {
		t.Fatalf("expected lowest num 5, got %d ok=%v", num, ok)
	}
	// Idempotent without mutation.
	again, ok := d.FindNumByExternalID("!dup")
	if !ok || again != num {
		t.Fatalf("lookup not stable: %d then %d", num, again)
	}
	if _, ok := d.FindNumByExternalID("!missing"); ok {
		t.Fatalf("missing id should not resolve")
	}
}

func TestNotificationsGatedUntilEnabled(t *testing.T) {
	testlog.Start(t)
	bus := events.NewBus(8)
	ch, cancel := bus.Subscribe()
	defer cancel()

	d := New(bus)
	d.MergeUser(1, protocol.User{LongName: "early"})
	select {
	case ev := <-ch:
		t.Fatalf("notification before enable: %#v", ev)
	default:
	}

	d.EnableNotifications()
	d.MergePosition(2, protocol.Position{Altitude: 3})
	ev := <-ch
	changed, ok := ev.(events.NodeListChanged)
	if !ok || changed.Num != 2 {
		t.Fatalf("unexpected event: %#v", ev)
	}

	d.Remove(2)
	ev = <-ch
	if ev.(events.NodeListChanged).Num != 2 {
		t.Fatalf("remove should notify: %#v", ev)
	}
}

func TestAllSnapshotIsRestartable(t *testing.T) {
	testlog.Start(t)
	d := New(nil)
	d.MergeUser(1, protocol.User{LongName: "a"})
	d.MergeUser(2, protocol.User{LongName: "b"})

	seq := d.All()
	count := 0
	for range seq {
		count++
	}
	if count != 2 {
		t.Fatalf("unexpected first pass count: %d", count)
	}
	// Mutations after the snapshot do not affect a restarted pass.
	d.MergeUser(3, protocol.User{LongName: "c"})
	count = 0
	for num, rec := range seq {
		if num != rec.Num {
			t.Fatalf("key/record mismatch: %d vs %d", num, rec.Num)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("snapshot should be stable, got %d", count)
	}
}
