package session

import (
	"bytes"
	"testing"

	"github.com/grapholt/boltwire/chunking"
	"github.com/grapholt/boltwire/messaging"
	"github.com/grapholt/boltwire/packstream"
	"github.com/grapholt/boltwire/structs"
)

// cannedEngine builds a messaging.Engine whose reads are satisfied, in
// order, by encoding each of responses onto an in-memory buffer — one
// SUCCESS per BEGIN/COMMIT/ROLLBACK the test drives.
func cannedEngine(t *testing.T, responses []structs.Handler) *messaging.Engine {
	t.Helper()
	reg := structs.NewRegistry()
	in := &bytes.Buffer{}
	cw := chunking.NewWriter(in)
	for _, r := range responses {
		var buf bytes.Buffer
		enc := packstream.NewEncoder(&buf)
		if err := enc.Encode(reg.Encode(r)); err != nil {
			t.Fatalf("encode canned response: %v", err)
		}
		if err := enc.Flush(); err != nil {
			t.Fatal(err)
		}
		if err := cw.WriteMessage(buf.Bytes()); err != nil {
			t.Fatal(err)
		}
	}
	out := &bytes.Buffer{}
	return messaging.NewEngine(in, out, reg, nil, 1024, 1<<20)
}

func successWithBookmark(bookmark string) *structs.Success {
	var entries []packstream.MapEntry
	if bookmark != "" {
		entries = append(entries, packstream.MapEntry{Key: "bookmark", Value: packstream.String(bookmark)})
	}
	return &structs.Success{Metadata: packstream.Map(entries...)}
}

func TestCommitOnSuccessFlag(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{
		successWithBookmark(""),          // BEGIN
		successWithBookmark("bm-commit"), // COMMIT
	})
	reg := structs.NewRegistry()

	var disposedCount int
	var gotBookmark string
	tx := NewTransaction(engine, reg, "", func(bm string) {
		disposedCount++
		gotBookmark = bm
	})

	if err := tx.Begin(packstream.Map()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	tx.Success()
	if err := tx.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	if tx.State() != Succeeded {
		t.Fatalf("want Succeeded, got %v", tx.State())
	}
	if disposedCount != 1 {
		t.Fatalf("resource handler invoked %d times, want 1", disposedCount)
	}
	if gotBookmark != "bm-commit" {
		t.Fatalf("want bookmark bm-commit, got %q", gotBookmark)
	}
}

func TestFailureWinsOverSuccess(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{
		successWithBookmark(""), // BEGIN
		successWithBookmark(""), // ROLLBACK
	})
	reg := structs.NewRegistry()

	var disposedCount int
	tx := NewTransaction(engine, reg, "", func(string) { disposedCount++ })

	if err := tx.Begin(packstream.Map()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	tx.Success()
	tx.Failure()
	if err := tx.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	if tx.State() != Aborted {
		t.Fatalf("want Aborted (rollback), got %v", tx.State())
	}
	if disposedCount != 1 {
		t.Fatalf("resource handler invoked %d times, want 1", disposedCount)
	}
}

func TestNoExplicitSuccessRollsBack(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{
		successWithBookmark(""), // BEGIN
		successWithBookmark(""), // ROLLBACK
	})
	reg := structs.NewRegistry()
	tx := NewTransaction(engine, reg, "", func(string) {})

	if err := tx.Begin(packstream.Map()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if tx.State() != Aborted {
		t.Fatalf("want Aborted, got %v", tx.State())
	}
}

func TestDoubleDisposeIsNoop(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{
		successWithBookmark(""),
		successWithBookmark(""),
	})
	reg := structs.NewRegistry()

	var disposedCount int
	tx := NewTransaction(engine, reg, "", func(string) { disposedCount++ })
	if err := tx.Begin(packstream.Map()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Dispose(); err != nil {
		t.Fatalf("first dispose: %v", err)
	}
	if err := tx.Dispose(); err != nil {
		t.Fatalf("second dispose: %v", err)
	}
	if disposedCount != 1 {
		t.Fatalf("resource handler invoked %d times, want 1", disposedCount)
	}
}

func TestMarkedToCloseBlocksRun(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{successWithBookmark("")})
	reg := structs.NewRegistry()
	tx := NewTransaction(engine, reg, "", func(string) {})
	if err := tx.Begin(packstream.Map()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	tx.MarkToClose()

	err := tx.Run("RETURN 1", packstream.Map(), packstream.Map(), nil)
	if err == nil {
		t.Fatalf("expected client error")
	}
}

func TestMarkedToCloseSuppressesWireTerminate(t *testing.T) {
	engine := cannedEngine(t, []structs.Handler{successWithBookmark("")})
	reg := structs.NewRegistry()

	var disposedCount int
	tx := NewTransaction(engine, reg, "", func(string) { disposedCount++ })
	if err := tx.Begin(packstream.Map()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	tx.MarkToClose()

	if err := tx.Commit(); err == nil {
		t.Fatalf("expected commit to be rejected once marked to close")
	}
	if err := tx.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if disposedCount != 1 {
		t.Fatalf("resource handler invoked %d times, want 1", disposedCount)
	}
}
