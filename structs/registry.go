package structs

import (
	"github.com/grapholt/boltwire/bolterr"
	"github.com/grapholt/boltwire/packstream"
)

// Handler is satisfied by every domain value and message struct that rides
// the PackStream tagged-struct encoding. Modeled on rtmp.Packet's
// Size()/MarshalBinary/UnmarshalBinary/Type() quartet, adapted to
// PackStream's Value sum type instead of raw bytes.
type Handler interface {
	// Tag returns this handler's struct tag byte.
	Tag() byte
	// FieldCount returns the number of PackStream fields this handler
	// reads and writes; decode fails with a struct arity mismatch error
	// if the wire value disagrees.
	FieldCount() int
	// ToFields encodes this handler's fields in wire order.
	ToFields() []packstream.Value
	// FromFields populates this handler from decoded wire fields. The
	// slice is guaranteed len(fields) == FieldCount() by the registry.
	FromFields(fields []packstream.Value) error
}

// Factory builds a zero-value Handler for a given tag, ready to have
// FromFields called on it.
type Factory func() Handler

// Registry is the bidirectional tag<->handler mapping (spec §4.3): a
// read-path map keyed by tag byte, and implicitly a write-path map via each
// concrete Handler knowing its own Tag().
type Registry struct {
	byTag map[byte]Factory
}

// NewRegistry builds a registry with every struct tag this driver knows
// about (spec §4.9) pre-registered.
func NewRegistry() *Registry {
	r := &Registry{byTag: make(map[byte]Factory)}

	r.Register(TagHello, func() Handler { return &Hello{} })
	r.Register(TagRun, func() Handler { return &Run{} })
	r.Register(TagDiscardAll, func() Handler { return &DiscardAll{} })
	r.Register(TagPullAll, func() Handler { return &PullAll{} })
	r.Register(TagBegin, func() Handler { return &Begin{} })
	r.Register(TagCommit, func() Handler { return &Commit{} })
	r.Register(TagRollback, func() Handler { return &Rollback{} })
	r.Register(TagReset, func() Handler { return &Reset{} })
	r.Register(TagGoodbye, func() Handler { return &Goodbye{} })

	r.Register(TagSuccess, func() Handler { return &Success{} })
	r.Register(TagRecord, func() Handler { return &Record{} })
	r.Register(TagIgnored, func() Handler { return &Ignored{} })
	r.Register(TagFailure, func() Handler { return &Failure{} })

	r.Register(TagNode, func() Handler { return &Node{} })
	r.Register(TagRelationship, func() Handler { return &Relationship{} })
	r.Register(TagUnboundRelationship, func() Handler { return &UnboundRelationship{} })
	r.Register(TagPath, func() Handler { return &Path{} })
	r.Register(TagPoint2D, func() Handler { return &Point2D{} })
	r.Register(TagPoint3D, func() Handler { return &Point3D{} })
	r.Register(TagDate, func() Handler { return &Date{} })
	r.Register(TagTime, func() Handler { return &Time{} })
	r.Register(TagLocalTime, func() Handler { return &LocalTime{} })
	r.Register(TagDateTime, func() Handler { return &DateTime{} })
	r.Register(TagDateTimeZoneID, func() Handler { return &DateTimeZoneID{} })
	r.Register(TagLocalDateTime, func() Handler { return &LocalDateTime{} })
	r.Register(TagDuration, func() Handler { return &Duration{} })

	return r
}

// Register adds or replaces the factory for tag.
func (r *Registry) Register(tag byte, f Factory) {
	r.byTag[tag] = f
}

// Encode turns h into the PackStream struct Value for h's own tag and the
// fields h.ToFields returns. An unknown-kind failure can't happen here
// because h already satisfies Handler; this exists for symmetry with
// Decode. Encode does not compare the field count with h.FieldCount; only
// Decode checks arity.
func (r *Registry) Encode(h Handler) packstream.Value {
	return packstream.Struct(h.Tag(), h.ToFields()...)
}

// Decode looks up v's tag in the registry and populates the corresponding
// Handler. An unknown tag is a fatal protocol error (spec §4.3); a field
// count mismatch against the handler's declared arity is a fatal decode
// error, not merely a warning, matching spec §8 property 4.
func (r *Registry) Decode(v packstream.Value) (Handler, error) {
	if v.Kind != packstream.KindStruct {
		return nil, bolterr.Protocol(nil, "expected struct value, got %v", v.Kind)
	}
	factory, ok := r.byTag[v.Tag]
	if !ok {
		return nil, bolterr.Protocol(nil, "unknown struct tag 0x%02X", v.Tag)
	}
	h := factory()
	if len(v.Fields) != h.FieldCount() {
		return nil, bolterr.Protocol(nil, "struct arity mismatch for tag 0x%02X: want %d fields, got %d", v.Tag, h.FieldCount(), len(v.Fields))
	}
	if err := h.FromFields(v.Fields); err != nil {
		return nil, bolterr.Protocol(err, "decode struct tag 0x%02X", v.Tag)
	}
	return h, nil
}
