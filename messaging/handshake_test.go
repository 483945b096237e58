package messaging

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHandshakeProposeWritesMagicAndVersions(t *testing.T) {
	var buf bytes.Buffer
	hs := Handshake{}
	if err := hs.Propose(&buf, []Version{4, 3, 2, 1}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	got := buf.Bytes()
	if !bytes.Equal(got[:4], Magic[:]) {
		t.Fatalf("magic prefix mismatch: % X", got[:4])
	}
	for i, want := range []uint32{4, 3, 2, 1} {
		v := binary.BigEndian.Uint32(got[4+i*4:])
		if v != want {
			t.Fatalf("proposal %d: want %d got %d", i, want, v)
		}
	}
}

func TestHandshakeReadSelectedZeroIsFatal(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(0))
	hs := Handshake{}
	if _, err := hs.ReadSelected(&buf); err == nil {
		t.Fatalf("expected fatal error for zero version")
	}
}

func TestHandshakeReadSelectedReturnsVersion(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(4))
	hs := Handshake{}
	v, err := hs.ReadSelected(&buf)
	if err != nil {
		t.Fatalf("read selected: %v", err)
	}
	if v != 4 {
		t.Fatalf("want version 4, got %v", v)
	}
}
