package session

import (
	"sync"

	"github.com/grapholt/boltwire/bolterr"
	"github.com/grapholt/boltwire/messaging"
	"github.com/grapholt/boltwire/packstream"
	"github.com/grapholt/boltwire/structs"
)

// Session serializes a single caller's requests against one connection at
// a time, holding at most one live Transaction and the last-known bookmark
// (spec §4.8).
type Session struct {
	mu sync.Mutex

	engine   *messaging.Engine
	reg      *structs.Registry
	bookmark string
	current  *Transaction
	release  func(healthy bool)
	closed   bool
	healthy  bool
}

// New builds a Session over engine. release is called exactly once, by the
// first Close, when the session's connection is no longer needed; the
// resource handler of an autocommit transient transaction does not call
// it. healthy tells the collaborator pool (spec §4.6: "release(conn)
// returns it — the pool decides whether to keep or discard based on health")
// whether this connection ever observed a TransportError/ProtocolError;
// either is fatal to the connection per spec §7 and disqualifies it from
// reuse.
func New(engine *messaging.Engine, reg *structs.Registry, release func(healthy bool)) *Session {
	return &Session{engine: engine, reg: reg, release: release, healthy: true}
}

// noteHealth marks the session unhealthy once a TransportError or
// ProtocolError has been observed (spec §7: both are "fatal to the
// connection"); a DatabaseError or ClientError leaves the connection
// reusable. Callers must hold s.mu.
func (s *Session) noteHealth(err error) {
	if err == nil {
		return
	}
	if bolterr.Is(err, bolterr.ClassTransport) || bolterr.Is(err, bolterr.ClassProtocol) {
		s.healthy = false
	}
}

// Bookmark returns the session's last-known bookmark.
func (s *Session) Bookmark() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookmark
}

// BeginTransaction starts an explicit transaction, passing the session's
// current bookmark to BEGIN (spec §4.8).
func (s *Session) BeginTransaction(txExtra packstream.Value) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, bolterr.Client(nil, "session is closed")
	}
	if s.current != nil && !s.current.State().terminal() && s.current.State() != MarkedToClose {
		return nil, bolterr.Client(nil, "session already has a live transaction")
	}

	tx := NewTransaction(s.engine, s.reg, s.bookmark, s.adoptBookmark)
	if err := tx.Begin(txExtra); err != nil {
		s.noteHealth(err)
		return nil, err
	}
	s.current = tx
	return tx, nil
}

// adoptBookmark is the resource handler every transaction started by this
// session is given: on termination it adopts the returned bookmark when
// that bookmark is non-empty; an empty one (a rollback, or a commit whose
// SUCCESS carried none) leaves the session's bookmark unchanged.
func (s *Session) adoptBookmark(bookmark string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bookmark != "" {
		s.bookmark = bookmark
	}
}

// Run executes statement as an autocommit transaction: BEGIN, RUN,
// PULL_ALL, and COMMIT are enqueued together and flushed with a single
// Sync (spec §4.8: "Autocommit RUN is equivalent to a transient
// transaction that sends BEGIN+RUN+COMMIT in one pipeline") — see
// Transaction.runAutocommit.
func (s *Session) Run(statement string, params packstream.Value, extra packstream.Value, onRecord func(packstream.Value)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return bolterr.Client(nil, "session is closed")
	}
	if s.current != nil && !s.current.State().terminal() && s.current.State() != MarkedToClose {
		s.mu.Unlock()
		return bolterr.Client(nil, "session already has a live transaction")
	}
	s.mu.Unlock()

	tx := NewTransaction(s.engine, s.reg, s.Bookmark(), s.adoptBookmark)
	err := tx.runAutocommit(statement, params, extra, onRecord)

	s.mu.Lock()
	s.noteHealth(err)
	s.mu.Unlock()
	return err
}

// Reset aborts any work the session's current transaction has queued and
// returns the underlying connection to a ready state without tearing it
// down (spec §4.4/§5/GLOSSARY RESET: "the remedy is RESET, which causes all
// queued handlers to observe an IGNORED outcome and then resumes"). The
// current transaction, if any, is marked to close and disposed locally
// (no wire traffic of its own — RESET supersedes it) before RESET is sent.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return bolterr.Client(nil, "session is closed")
	}
	current := s.current
	s.current = nil
	s.mu.Unlock()

	// Dispose notifies adoptBookmark, which takes s.mu itself.
	if current != nil {
		current.MarkToClose()
		_ = current.Dispose()
	}
	err := s.engine.Reset()

	s.mu.Lock()
	s.noteHealth(err)
	s.mu.Unlock()
	return err
}

// Close releases the session's connection. Subsequent operations fail with
// a client error. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	current := s.current
	s.mu.Unlock()

	// Dispose notifies adoptBookmark, which takes s.mu itself.
	if current != nil {
		current.MarkToClose()
		_ = current.Dispose()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		s.release(s.healthy)
	}
}
