package structs

import (
	"testing"

	"github.com/grapholt/boltwire/packstream"
)

func TestRegistryRoundTripsMessages(t *testing.T) {
	reg := NewRegistry()

	cases := []Handler{
		&Hello{Extra: packstream.Map(packstream.MapEntry{Key: "user_agent", Value: packstream.String("boltwire/1.0")})},
		&Run{Statement: "RETURN 1", Parameters: packstream.Map(), Extra: packstream.Map()},
		&PullAll{},
		&DiscardAll{},
		&Begin{Extra: packstream.Map()},
		&Commit{},
		&Rollback{},
		&Reset{},
		&Goodbye{},
		&Success{Metadata: packstream.Map()},
		&Record{Fields: packstream.List(packstream.Int(1))},
		&Ignored{},
		&Failure{Metadata: packstream.Map(packstream.MapEntry{Key: "code", Value: packstream.String("Neo.ClientError.Statement.SyntaxError")})},
	}

	for _, want := range cases {
		v := reg.Encode(want)
		got, err := reg.Decode(v)
		if err != nil {
			t.Fatalf("decode tag 0x%02X: %v", want.Tag(), err)
		}
		if got.Tag() != want.Tag() {
			t.Fatalf("tag mismatch: want 0x%02X got 0x%02X", want.Tag(), got.Tag())
		}
	}
}

func TestRegistryUnknownTagIsProtocolError(t *testing.T) {
	reg := NewRegistry()
	v := packstream.Struct(0xFF)
	if _, err := reg.Decode(v); err == nil {
		t.Fatalf("expected unknown tag error")
	}
}

func TestRegistryArityMismatchIsProtocolError(t *testing.T) {
	reg := NewRegistry()
	// Hello expects 1 field, give it 2.
	v := packstream.Struct(TagHello, packstream.Map(), packstream.Int(1))
	if _, err := reg.Decode(v); err == nil {
		t.Fatalf("expected arity mismatch error")
	}
}

func TestNodeRoundTrip(t *testing.T) {
	reg := NewRegistry()
	n := &Node{
		ID:         7,
		Labels:     []string{"Person", "Employee"},
		Properties: map[string]packstream.Value{"name": packstream.String("Ada")},
	}
	v := reg.Encode(n)
	got, err := reg.Decode(v)
	if err != nil {
		t.Fatalf("decode node: %v", err)
	}
	gn, ok := got.(*Node)
	if !ok {
		t.Fatalf("expected *Node, got %T", got)
	}
	if gn.ID != n.ID || len(gn.Labels) != 2 {
		t.Fatalf("node round trip mismatch: %+v", gn)
	}
}
