package structs

import "github.com/grapholt/boltwire/packstream"

// Hello is the HELLO/INIT request (spec §3, §4.5): authentication plus user
// agent, sent once per connection before any other request.
type Hello struct {
	Extra packstream.Value // Map: user_agent, scheme, principal, credentials, ...
}

func (h *Hello) Tag() byte        { return TagHello }
func (h *Hello) FieldCount() int  { return 1 }
func (h *Hello) ToFields() []packstream.Value { return []packstream.Value{h.Extra} }
func (h *Hello) FromFields(f []packstream.Value) error {
	h.Extra = f[0]
	return nil
}

// Run carries a statement's text and parameters (spec §3 Statement, §4.7).
type Run struct {
	Statement  string
	Parameters packstream.Value // Map
	Extra      packstream.Value // Map: tx_timeout, tx_metadata, mode, db, bookmarks
}

func (r *Run) Tag() byte       { return TagRun }
func (r *Run) FieldCount() int { return 3 }
func (r *Run) ToFields() []packstream.Value {
	return []packstream.Value{packstream.String(r.Statement), r.Parameters, r.Extra}
}
func (r *Run) FromFields(f []packstream.Value) error {
	r.Statement = f[0].Str
	r.Parameters = f[1]
	r.Extra = f[2]
	return nil
}

// PullAll requests delivery of all remaining records of the current result.
type PullAll struct{}

func (p *PullAll) Tag() byte                            { return TagPullAll }
func (p *PullAll) FieldCount() int                      { return 0 }
func (p *PullAll) ToFields() []packstream.Value         { return nil }
func (p *PullAll) FromFields(f []packstream.Value) error { return nil }

// DiscardAll requests discarding all remaining records of the current result.
type DiscardAll struct{}

func (d *DiscardAll) Tag() byte                            { return TagDiscardAll }
func (d *DiscardAll) FieldCount() int                      { return 0 }
func (d *DiscardAll) ToFields() []packstream.Value         { return nil }
func (d *DiscardAll) FromFields(f []packstream.Value) error { return nil }

// Begin starts an explicit transaction (spec §4.7 Ready->Active).
type Begin struct {
	Extra packstream.Value // Map: bookmarks, tx_timeout, tx_metadata, mode, db
}

func (b *Begin) Tag() byte                    { return TagBegin }
func (b *Begin) FieldCount() int              { return 1 }
func (b *Begin) ToFields() []packstream.Value { return []packstream.Value{b.Extra} }
func (b *Begin) FromFields(f []packstream.Value) error {
	b.Extra = f[0]
	return nil
}

// Commit ends a transaction successfully (spec §4.7 Active->Committing).
type Commit struct{}

func (c *Commit) Tag() byte                            { return TagCommit }
func (c *Commit) FieldCount() int                      { return 0 }
func (c *Commit) ToFields() []packstream.Value         { return nil }
func (c *Commit) FromFields(f []packstream.Value) error { return nil }

// Rollback abandons a transaction (spec §4.7 Active->RollingBack).
type Rollback struct{}

func (r *Rollback) Tag() byte                            { return TagRollback }
func (r *Rollback) FieldCount() int                      { return 0 }
func (r *Rollback) ToFields() []packstream.Value         { return nil }
func (r *Rollback) FromFields(f []packstream.Value) error { return nil }

// Reset abandons all queued work on a connection (spec §4.4, GLOSSARY).
type Reset struct{}

func (r *Reset) Tag() byte                            { return TagReset }
func (r *Reset) FieldCount() int                      { return 0 }
func (r *Reset) ToFields() []packstream.Value         { return nil }
func (r *Reset) FromFields(f []packstream.Value) error { return nil }

// Goodbye tells the server this connection is closing voluntarily.
type Goodbye struct{}

func (g *Goodbye) Tag() byte                            { return TagGoodbye }
func (g *Goodbye) FieldCount() int                      { return 0 }
func (g *Goodbye) ToFields() []packstream.Value         { return nil }
func (g *Goodbye) FromFields(f []packstream.Value) error { return nil }

// Success is a terminal positive response carrying metadata (spec §3).
type Success struct {
	Metadata packstream.Value // Map
}

func (s *Success) Tag() byte                    { return TagSuccess }
func (s *Success) FieldCount() int              { return 1 }
func (s *Success) ToFields() []packstream.Value { return []packstream.Value{s.Metadata} }
func (s *Success) FromFields(f []packstream.Value) error {
	s.Metadata = f[0]
	return nil
}

// Record is one row of a result (spec §3).
type Record struct {
	Fields packstream.Value // List
}

func (r *Record) Tag() byte                    { return TagRecord }
func (r *Record) FieldCount() int              { return 1 }
func (r *Record) ToFields() []packstream.Value { return []packstream.Value{r.Fields} }
func (r *Record) FromFields(f []packstream.Value) error {
	r.Fields = f[0]
	return nil
}

// Ignored is a terminal response to a request that was skipped because an
// earlier request in the same pipeline already failed.
type Ignored struct{}

func (i *Ignored) Tag() byte                            { return TagIgnored }
func (i *Ignored) FieldCount() int                      { return 0 }
func (i *Ignored) ToFields() []packstream.Value         { return nil }
func (i *Ignored) FromFields(f []packstream.Value) error { return nil }

// Failure is a terminal negative response carrying a server status code and
// message (spec §7 DatabaseError).
type Failure struct {
	Metadata packstream.Value // Map: code, message
}

func (f *Failure) Tag() byte                    { return TagFailure }
func (f *Failure) FieldCount() int              { return 1 }
func (f *Failure) ToFields() []packstream.Value { return []packstream.Value{f.Metadata} }
func (f *Failure) FromFields(fields []packstream.Value) error {
	f.Metadata = fields[0]
	return nil
}

// Code returns the server-reported status code string from Metadata, or ""
// if absent.
func (f *Failure) Code() string {
	return mapLookupString(f.Metadata, "code")
}

// Message returns the server-reported human-readable message, or "" if
// absent.
func (f *Failure) Message() string {
	return mapLookupString(f.Metadata, "message")
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
