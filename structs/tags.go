// Package structs implements the struct handler registry (spec §4.3/§4.9):
// a bidirectional mapping between PackStream struct tags and domain values
// — node, relationship, path, point, date/time/duration variants — plus the
// request/response message structs that ride the same tagged-struct
// encoding.
//
// Grounded on rtmp.Packet (rtmp/rtmp.go): one shared interface
// (`Handler` here, `Packet` there) with concrete implementations
// (`ConnectAppPacket`, `SetChunkSize`, ... there; `Node`, `Hello`, `Run`, ...
// here) each owning its own tag, field count, and marshal/unmarshal.
package structs

// Request message tags (spec §3, §4.7).
const (
	TagHello       byte = 0x01
	TagRun         byte = 0x10
	TagDiscardAll  byte = 0x2F
	TagPullAll     byte = 0x3F
	TagBegin       byte = 0x11
	TagCommit      byte = 0x12
	TagRollback    byte = 0x13
	TagReset       byte = 0x0F
	TagGoodbye     byte = 0x02
)

// Response message tags (spec §3).
const (
	TagSuccess byte = 0x70
	TagRecord  byte = 0x71
	TagIgnored byte = 0x7E
	TagFailure byte = 0x7F
)

// Domain value tags (spec §4.3, §4.9).
const (
	TagNode                byte = 0x4E
	TagRelationship        byte = 0x52
	TagUnboundRelationship byte = 0x72
	TagPath                byte = 0x50
	TagPoint2D             byte = 0x58
	TagPoint3D             byte = 0x59
	TagDate                byte = 0x44
	TagTime                byte = 0x54
	TagLocalTime           byte = 0x74
	TagDateTime            byte = 0x46
	TagDateTimeZoneID      byte = 0x66
	TagLocalDateTime       byte = 0x64
	TagDuration            byte = 0x45
)
