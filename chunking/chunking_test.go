package chunking

import (
	"bytes"
	"testing"
)

func TestWriteMessageRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		bytes.Repeat([]byte{0xAB}, 100),
		bytes.Repeat([]byte{0xCD}, MaxChunkSize),
		bytes.Repeat([]byte{0xEF}, MaxChunkSize+1), // forces a second chunk
		bytes.Repeat([]byte{0x42}, 2*1024*1024),    // 2 MiB, spec §8 property 3
	}
	for _, payload := range cases {
		var wire bytes.Buffer
		w := NewWriter(&wire)
		if err := w.WriteMessage(payload); err != nil {
			t.Fatalf("write message of length %d: %v", len(payload), err)
		}

		r := NewReader(&wire, 1024, 1<<20)
		got, _, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("read message of length %d: %v", len(payload), err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch for length %d", len(payload))
		}
	}
}

func TestWriteMessageTerminatesWithZeroLengthChunk(t *testing.T) {
	var wire bytes.Buffer
	w := NewWriter(&wire)
	if err := w.WriteMessage([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b := wire.Bytes()
	if len(b) < 2 || b[len(b)-2] != 0x00 || b[len(b)-1] != 0x00 {
		t.Fatalf("expected wire to end in 00 00 terminator, got % X", b)
	}
}

func TestWriteMessageSplitsOversizePayloadAcrossChunks(t *testing.T) {
	payload := bytes.Repeat([]byte{0x09}, MaxChunkSize+10)
	var wire bytes.Buffer
	w := NewWriter(&wire)
	if err := w.WriteMessage(payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	b := wire.Bytes()
	firstLen := int(b[0])<<8 | int(b[1])
	if firstLen != MaxChunkSize {
		t.Fatalf("expected first chunk to be MaxChunkSize, got %d", firstLen)
	}
}

func TestReadMessageRejectsEmptyMessageAtStart(t *testing.T) {
	wire := bytes.NewBuffer([]byte{0x00, 0x00})
	r := NewReader(wire, 1024, 1<<20)
	if _, _, err := r.ReadMessage(); err == nil {
		t.Fatalf("expected protocol error for terminator at start of message")
	}
}

func TestReadMessageTruncatedPayloadIsRecoverableIOError(t *testing.T) {
	// claims 10 bytes of payload but only supplies 3.
	wire := bytes.NewBuffer([]byte{0x00, 0x0A, 0x01, 0x02, 0x03})
	r := NewReader(wire, 1024, 1<<20)
	if _, _, err := r.ReadMessage(); err == nil {
		t.Fatalf("expected io error for truncated payload")
	}
}

func TestReaderShrinksBufferAfterExceedingMaxCapacity(t *testing.T) {
	var wire bytes.Buffer
	w := NewWriter(&wire)
	big := bytes.Repeat([]byte{0x01}, 2048)
	if err := w.WriteMessage(big); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewReader(&wire, 64, 1024)
	if _, _, err := r.ReadMessage(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if cap(r.buf) > 1024 {
		t.Fatalf("expected buffer to be shrunk back down, still has capacity %d", cap(r.buf))
	}
	if cap(r.buf) != 64 {
		t.Fatalf("expected buffer shrunk to default capacity 64, got %d", cap(r.buf))
	}
}

func TestReaderReassemblesMultipleMessagesInOrder(t *testing.T) {
	var wire bytes.Buffer
	w := NewWriter(&wire)
	msgs := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, m := range msgs {
		if err := w.WriteMessage(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	r := NewReader(&wire, 1024, 1<<20)
	for _, want := range msgs {
		got, _, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("want %q got %q", want, got)
		}
	}
}
