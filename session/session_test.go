package session

import (
	"testing"

	"github.com/grapholt/boltwire/packstream"
	"github.com/grapholt/boltwire/structs"
)

func TestSessionAutocommitAdoptsBookmark(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{
		successWithBookmark(""),          // BEGIN
		successWithBookmark(""),          // RUN
		&structs.Record{Fields: packstream.List(packstream.Int(1))},
		successWithBookmark(""),          // PULL_ALL terminal
		successWithBookmark("bm-session"), // COMMIT
	})
	reg := structs.NewRegistry()

	released := false
	s := New(engine, reg, func(healthy bool) {
		released = true
		if !healthy {
			t.Fatalf("expected healthy release after a clean autocommit run")
		}
	})

	var records []packstream.Value
	err := s.Run("RETURN 1", packstream.Map(), packstream.Map(), func(v packstream.Value) {
		records = append(records, v)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if s.Bookmark() != "bm-session" {
		t.Fatalf("want bookmark bm-session, got %q", s.Bookmark())
	}

	s.Close()
	if !released {
		t.Fatalf("expected release callback on close")
	}
}

func TestSessionResetSendsResetAndDiscardsCurrentTransaction(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{
		successWithBookmark(""), // BEGIN
		successWithBookmark(""), // RESET
	})
	reg := structs.NewRegistry()
	s := New(engine, reg, func(bool) {})

	tx, err := s.BeginTransaction(packstream.Map())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if tx.State() != MarkedToClose {
		t.Fatalf("want transaction MarkedToClose after reset, got %v", tx.State())
	}

	// Reset must clear s.current so that a later BeginTransaction is not
	// refused as a second live transaction; the canned engine has no more
	// responses queued, so this checks the cleared field rather than driving
	// another BEGIN round trip.
	if s.current != nil {
		t.Fatalf("expected Reset to clear the session's current transaction")
	}
}

func TestSessionResetReportsUnhealthyOnTransportFailure(t *testing.T) {
	reg := structs.NewRegistry()
	// engine backed by an empty stream: RESET's own Sync will hit EOF.
	engine := cannedEngine(t, nil)
	s := New(engine, reg, func(bool) {})

	released := false
	s.release = func(healthy bool) {
		released = true
		if healthy {
			t.Fatalf("expected unhealthy release after a transport failure during Reset")
		}
	}

	if err := s.Reset(); err == nil {
		t.Fatalf("expected reset to surface the transport failure")
	}
	s.Close()
	if !released {
		t.Fatalf("expected release callback on close")
	}
}
