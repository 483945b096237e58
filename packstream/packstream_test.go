package packstream

import (
	"bytes"
	"math"
	"testing"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	dec := NewDecoder(&buf)
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Bool(false),
		Int(0),
		Int(127),
		Int(-16),
		Int(-17),
		Int(200),
		Int(70000),
		Int(math.MinInt64),
		Int(math.MaxInt64),
		Float(0),
		Float(-1.5),
		Float(math.Inf(1)),
		Float(math.Inf(-1)),
		String(""),
		String("hello"),
		String("snowman ☃ and emoji \U0001F600"),
		Bytes([]byte{}),
		Bytes([]byte{1, 2, 3}),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		if got.Kind != c.Kind {
			t.Fatalf("kind mismatch: want %v got %v", c.Kind, got.Kind)
		}
		switch c.Kind {
		case KindInt:
			if got.Int != c.Int {
				t.Fatalf("int mismatch: want %v got %v", c.Int, got.Int)
			}
		case KindFloat:
			if math.IsNaN(c.Float) {
				if !math.IsNaN(got.Float) {
					t.Fatalf("float NaN not preserved")
				}
			} else if got.Float != c.Float {
				t.Fatalf("float mismatch: want %v got %v", c.Float, got.Float)
			}
		case KindString:
			if got.Str != c.Str {
				t.Fatalf("string mismatch: want %q got %q", c.Str, got.Str)
			}
		case KindBytes:
			if !bytes.Equal(got.Bytes, c.Bytes) {
				t.Fatalf("bytes mismatch")
			}
		}
	}
}

func TestRoundTripNaN(t *testing.T) {
	got := roundTrip(t, Float(math.NaN()))
	if !math.IsNaN(got.Float) {
		t.Fatalf("expected NaN, got %v", got.Float)
	}
}

func TestRoundTripListsAndMaps(t *testing.T) {
	empty := roundTrip(t, List())
	if len(empty.List) != 0 {
		t.Fatalf("expected empty list")
	}

	single := roundTrip(t, List(Int(1)))
	if len(single.List) != 1 || single.List[0].Int != 1 {
		t.Fatalf("expected single-element list")
	}

	m := roundTrip(t, Map(MapEntry{Key: "a", Value: Int(1)}, MapEntry{Key: "b", Value: String("x")}))
	if len(m.Map) != 2 || m.Map[0].Key != "a" || m.Map[1].Key != "b" {
		t.Fatalf("map entries not preserved in order: %+v", m.Map)
	}
}

func TestRoundTripStruct(t *testing.T) {
	s := roundTrip(t, Struct(0x4E, Int(1), String("Person")))
	if s.Kind != KindStruct || s.Tag != 0x4E || len(s.Fields) != 2 {
		t.Fatalf("struct round trip failed: %+v", s)
	}
}

func TestSmallestIntEncoding(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{-16, []byte{0xF0}},
		{-17, []byte{0xC8, 0xEF}},
		{200, []byte{0xC9, 0x00, 0xC8}},
		{70000, []byte{0xCA, 0x00, 0x01, 0x11, 0x70}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		if err := enc.Encode(Int(c.v)); err != nil {
			t.Fatalf("encode %d: %v", c.v, err)
		}
		if err := enc.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}
		got := buf.Bytes()
		if !bytes.Equal(got, c.want) {
			t.Fatalf("encode(%d) = % X, want % X", c.v, got, c.want)
		}
	}
}

func TestDuplicateMapKeyOnEncodeIsClientError(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	err := enc.Encode(Map(MapEntry{Key: "a", Value: Int(1)}, MapEntry{Key: "a", Value: Int(2)}))
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestDuplicateMapKeyOnDecodeIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	// hand-encode a 2-entry tiny map with the same key twice, bypassing
	// the encoder's own duplicate check.
	buf.WriteByte(tinyMapBase | 2)
	enc := NewEncoder(&buf)
	for i := 0; i < 2; i++ {
		if err := enc.Encode(String("dup")); err != nil {
			t.Fatal(err)
		}
		if err := enc.Encode(Int(int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.Flush(); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(&buf)
	if _, err := dec.Decode(); err == nil {
		t.Fatalf("expected duplicate map key decode error")
	}
}

func TestStructArityMismatchFailsDecode(t *testing.T) {
	var buf bytes.Buffer
	// struct header declares 2 fields, but only 1 follows before EOF.
	buf.WriteByte(tinyStructBase | 2)
	buf.WriteByte(0x01) // tag
	enc := NewEncoder(&buf)
	if err := enc.Encode(Int(1)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(&buf)
	if _, err := dec.Decode(); err == nil {
		t.Fatalf("expected arity mismatch decode error")
	}
}
