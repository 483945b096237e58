package messaging

import (
	"encoding/binary"
	"io"

	"github.com/grapholt/boltwire/bolterr"
)

// Magic is the 4-byte prefix that opens every Bolt connection (spec §4.5,
// §6), chosen so a misdirected plain-HTTP or other TCP client fails fast
// instead of hanging.
var Magic = [4]byte{0x60, 0x60, 0xB0, 0x17}

// Version is a 32-bit protocol version as carried on the wire.
type Version uint32

// Handshake performs the connect-time version negotiation (spec §4.5):
// write the magic prefix and four proposed versions, then read back the
// server's single chosen version.
//
// Modeled on rtmp.Handshake's WriteC0S0/ReadC0S0 pair (rtmp/rtmp.go):
// write-then-read-and-validate, except Bolt's handshake body is a fixed
// 4+16+4 bytes rather than RTMP's 1536-byte random challenge, so there is
// no NewHandshake(*rand.Rand) — nothing here is randomized.
type Handshake struct{}

// Propose writes the magic prefix followed by up to four proposed
// versions, padding with 0 if fewer than four are supplied.
func (Handshake) Propose(w io.Writer, proposals []Version) error {
	if len(proposals) > 4 {
		return bolterr.Client(nil, "at most 4 version proposals, got %d", len(proposals))
	}
	var buf [4 + 4*4]byte
	copy(buf[0:4], Magic[:])
	for i := 0; i < 4; i++ {
		var v Version
		if i < len(proposals) {
			v = proposals[i]
		}
		binary.BigEndian.PutUint32(buf[4+i*4:], uint32(v))
	}
	if _, err := w.Write(buf[:]); err != nil {
		return bolterr.Transport(err, "write handshake proposal")
	}
	return nil
}

// ReadSelected reads the server's chosen version. A zero version means "no
// supported version" and is treated as fatal (spec §4.5).
func (Handshake) ReadSelected(r io.Reader) (Version, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, bolterr.Transport(err, "read handshake response")
	}
	v := Version(binary.BigEndian.Uint32(buf[:]))
	if v == 0 {
		return 0, bolterr.Protocol(nil, "server selected no supported protocol version")
	}
	return v, nil
}
