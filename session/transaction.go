// Package session implements the transaction/session core (spec §4.7,
// §4.8): the explicit-transaction state machine, autocommit, bookmark
// tracking, and the one-shot resource-handler callback a transaction uses
// to return its connection to the pool.
//
// Grounded on asprocess.Watch (asprocess/asprocess.go): that package's
// single-invocation Cleanup callback, triggered exactly once regardless of
// which of several signal paths fires, is the same shape as this package's
// ResourceHandler, invoked exactly once regardless of which of commit,
// rollback, or dispose triggers it.
package session

import (
	"sync"

	"github.com/grapholt/boltwire/bolterr"
	"github.com/grapholt/boltwire/messaging"
	"github.com/grapholt/boltwire/packstream"
	"github.com/grapholt/boltwire/structs"
)

// State is one member of the transaction state machine (spec §4.7).
type State int

const (
	Ready State = iota
	Active
	Committing
	RollingBack
	Succeeded
	Failed
	Aborted
	MarkedToClose
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Active:
		return "Active"
	case Committing:
		return "Committing"
	case RollingBack:
		return "RollingBack"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Aborted:
		return "Aborted"
	case MarkedToClose:
		return "MarkedToClose"
	default:
		return "Unknown"
	}
}

func (s State) terminal() bool {
	switch s {
	case Succeeded, Failed, Aborted:
		return true
	default:
		return false
	}
}

// ResourceHandler is the one-shot callback a Transaction invokes on
// termination (spec §3 Transaction, GLOSSARY Resource handler). bookmark is
// the latest bookmark known at termination time, possibly empty.
type ResourceHandler func(bookmark string)

// Transaction is the user-visible explicit-transaction state machine (spec
// §4.7). The zero value is not usable; construct with NewTransaction.
type Transaction struct {
	mu sync.Mutex

	state   State
	engine  *messaging.Engine
	reg     *structs.Registry
	handler ResourceHandler

	bookmark string // last known bookmark, adopted from BEGIN/session
	latest   string // bookmark returned by this transaction's own COMMIT

	successFlag bool
	failureFlag bool
	disposedFor bool // resource handler has been invoked
}

// NewTransaction constructs a transaction in state Ready, bound to engine,
// notifying handler exactly once on termination. bookmark is the session's
// current bookmark, passed to BEGIN (spec §4.8).
func NewTransaction(engine *messaging.Engine, reg *structs.Registry, bookmark string, handler ResourceHandler) *Transaction {
	return &Transaction{state: Ready, engine: engine, reg: reg, bookmark: bookmark, handler: handler}
}

// State reports the transaction's current state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Begin sends BEGIN with the session's bookmark and moves Ready->Active
// (spec §4.7).
func (t *Transaction) Begin(txExtra packstream.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Ready {
		return bolterr.Client(nil, "begin() called from state %v, expected Ready", t.state)
	}

	extra := mergeBookmark(txExtra, t.bookmark)
	var beginErr error
	h := &messaging.Handler{
		OnFailure: func(f *structs.Failure) { beginErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message()) },
	}
	if err := t.engine.Enqueue(&structs.Begin{Extra: extra}, h); err != nil {
		return err
	}
	if err := t.engine.Sync(); err != nil {
		return err
	}
	if beginErr != nil {
		return beginErr
	}

	t.state = Active
	return nil
}

// Run enqueues a RUN for stmt followed by a PULL_ALL (spec §4.7 Active ->
// Active). Running against a MarkedToClose transaction raises a client
// error without any wire traffic (spec §8 property 9); running from any
// other non-Active state is likewise a client error.
func (t *Transaction) Run(statement string, params packstream.Value, extra packstream.Value, onRecord func(packstream.Value)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == MarkedToClose {
		return bolterr.Client(nil, "Cannot run more statements in this transaction, it has been marked to close")
	}
	if t.state != Active {
		return bolterr.Client(nil, "run() called from state %v, expected Active", t.state)
	}

	var runErr error
	runHandler := &messaging.Handler{
		OnFailure: func(f *structs.Failure) {
			runErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message())
		},
	}
	if err := t.engine.Enqueue(&structs.Run{Statement: statement, Parameters: params, Extra: extra}, runHandler); err != nil {
		return err
	}

	pullHandler := &messaging.Handler{
		OnRecord: onRecord,
		OnFailure: func(f *structs.Failure) {
			if runErr == nil {
				runErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message())
			}
		},
	}
	if err := t.engine.Enqueue(&structs.PullAll{}, pullHandler); err != nil {
		return err
	}

	if err := t.engine.Sync(); err != nil {
		return err
	}

	// spec §4.7: "A failed RUN marks the transaction closed."
	if runErr != nil {
		t.state = MarkedToClose
		return runErr
	}
	return nil
}

// runAutocommit drives BEGIN+RUN+PULL_ALL+COMMIT as a single pipelined
// flush (spec §4.8: "Autocommit RUN is equivalent to a transient
// transaction that sends BEGIN+RUN+COMMIT in one pipeline"): all four
// requests are enqueued before the one Sync that reads their responses,
// instead of a Sync per request. A BEGIN or RUN failure still lets COMMIT
// travel the wire — the server answers it IGNORED, matching the same
// pipeline-abandonment behavior RESET relies on elsewhere in this package.
func (t *Transaction) runAutocommit(statement string, params, extra packstream.Value, onRecord func(packstream.Value)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Ready {
		return bolterr.Client(nil, "run() called from state %v, expected Ready", t.state)
	}

	beginExtra := mergeBookmark(packstream.Map(), t.bookmark)

	var beginErr, runErr error
	var committed bool
	var bookmark string

	beginHandler := &messaging.Handler{
		OnFailure: func(f *structs.Failure) { beginErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message()) },
	}
	if err := t.engine.Enqueue(&structs.Begin{Extra: beginExtra}, beginHandler); err != nil {
		return err
	}

	runHandler := &messaging.Handler{
		OnFailure: func(f *structs.Failure) {
			if beginErr == nil {
				runErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message())
			}
		},
	}
	if err := t.engine.Enqueue(&structs.Run{Statement: statement, Parameters: params, Extra: extra}, runHandler); err != nil {
		return err
	}

	pullHandler := &messaging.Handler{
		OnRecord: onRecord,
		OnFailure: func(f *structs.Failure) {
			if beginErr == nil && runErr == nil {
				runErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message())
			}
		},
	}
	if err := t.engine.Enqueue(&structs.PullAll{}, pullHandler); err != nil {
		return err
	}

	commitHandler := &messaging.Handler{
		OnSuccess: func(meta packstream.Value) {
			committed = true
			bookmark = mapLookupString(meta, "bookmark")
		},
	}
	if err := t.engine.Enqueue(&structs.Commit{}, commitHandler); err != nil {
		return err
	}

	t.state = Active
	if err := t.engine.Sync(); err != nil {
		t.state = MarkedToClose
		t.notifyOnceLocked()
		return err
	}

	switch {
	case beginErr != nil:
		t.state = Failed
		t.notifyOnceLocked()
		return beginErr
	case runErr != nil:
		t.state = Failed
		t.notifyOnceLocked()
		return runErr
	case committed:
		t.state = Succeeded
		t.latest = bookmark
		t.notifyOnceLocked()
		return nil
	default:
		t.state = Failed
		t.notifyOnceLocked()
		return bolterr.Protocol(nil, "autocommit pipeline finished without a COMMIT response")
	}
}

// Success sets a latching success flag consulted by Dispose; a later
// Failure call wins over it (spec §4.7 Rules).
func (t *Transaction) Success() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successFlag = true
}

// Failure sets the latching failure flag; once set it cannot be undone by
// a later Success call (spec §4.7: "a later failure() wins").
func (t *Transaction) Failure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failureFlag = true
}

// Commit enqueues COMMIT and moves Active->Committing->Succeeded|Failed,
// notifying the resource handler exactly once (spec §4.7).
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commitLocked()
}

func (t *Transaction) commitLocked() error {
	if t.state == MarkedToClose {
		return bolterr.Client(nil, "commit() called on a transaction marked to close")
	}
	if t.state != Active {
		return bolterr.Client(nil, "commit() called from state %v, expected Active", t.state)
	}
	t.state = Committing

	var bookmark string
	var failed bool
	var dbErr error
	h := &messaging.Handler{
		OnSuccess: func(meta packstream.Value) { bookmark = mapLookupString(meta, "bookmark") },
		OnFailure: func(f *structs.Failure) {
			failed = true
			dbErr = bolterr.Database(nil, "%v: %v", f.Code(), f.Message())
		},
	}
	if err := t.engine.Enqueue(&structs.Commit{}, h); err != nil {
		t.notifyOnceLocked()
		return err
	}
	if err := t.engine.Sync(); err != nil {
		t.notifyOnceLocked()
		return err
	}

	if failed {
		t.state = Failed
		t.notifyOnceLocked()
		return dbErr
	}
	t.state = Succeeded
	t.latest = bookmark
	t.notifyOnceLocked()
	return nil
}

// Rollback enqueues ROLLBACK and moves Active->RollingBack->Aborted,
// notifying the resource handler exactly once (spec §4.7).
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked()
}

func (t *Transaction) rollbackLocked() error {
	if t.state == MarkedToClose {
		return bolterr.Client(nil, "rollback() called on a transaction marked to close")
	}
	if t.state != Active {
		return bolterr.Client(nil, "rollback() called from state %v, expected Active", t.state)
	}
	t.state = RollingBack

	h := &messaging.Handler{}
	err := t.engine.Enqueue(&structs.Rollback{}, h)
	if err == nil {
		err = t.engine.Sync()
	}
	t.state = Aborted
	t.notifyOnceLocked()
	return err
}

// MarkToClose moves Ready or Active to MarkedToClose with no wire traffic
// (spec §4.7).
func (t *Transaction) MarkToClose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Ready || t.state == Active {
		t.state = MarkedToClose
	}
}

// Dispose ends the transaction according to the latching success/failure
// flags (spec §4.7: "dispose() w/ success flag and no failure flag ->
// Committing", "dispose() w/o success flag -> RollingBack") and is
// idempotent: calling it more than once invokes the resource handler only
// on the first call (spec §8 property 8).
func (t *Transaction) Dispose() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == MarkedToClose {
		// no wire traffic; resource handler still notified (spec §4.7
		// "MarkedToClose | dispose() | MarkedToClose | no wire traffic;
		// notify resource handler").
		t.notifyOnceLocked()
		return nil
	}
	if t.state.terminal() {
		// already committed/rolled back/aborted: idempotent no-op.
		return nil
	}
	if t.state != Active {
		return bolterr.Client(nil, "dispose() called from state %v", t.state)
	}

	if t.successFlag && !t.failureFlag {
		return t.commitLocked()
	}
	return t.rollbackLocked()
}

// notifyOnceLocked invokes the resource handler exactly once per
// transaction life (spec §4.7 Rules). Callers must hold t.mu.
func (t *Transaction) notifyOnceLocked() {
	if t.disposedFor {
		return
	}
	t.disposedFor = true
	if t.handler != nil {
		t.handler(t.latest)
	}
}

// Bookmark returns the bookmark this transaction produced on commit, or
// empty if it has not yet committed.
func (t *Transaction) Bookmark() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

func mergeBookmark(extra packstream.Value, bookmark string) packstream.Value {
	entries := append([]packstream.MapEntry{}, extra.Map...)
	if bookmark != "" {
		entries = append(entries, packstream.MapEntry{
			Key:   "bookmarks",
			Value: packstream.List(packstream.String(bookmark)),
		})
	}
	return packstream.Map(entries...)
}

func mapLookupString(v packstream.Value, key string) string {
	if v.Kind != packstream.KindMap {
		return ""
	}
	for _, e := range v.Map {
		if e.Key == key && e.Value.Kind == packstream.KindString {
			return e.Value.Str
		}
	}
	return ""
}
