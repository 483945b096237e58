// Package packstream implements the self-describing binary value codec used
// on the wire (spec §4.3): markers for null, booleans, signed integers,
// IEEE-754 doubles, UTF-8 strings, byte arrays, lists, maps, and tagged
// structures.
//
// Grounded on amf0.Amf0 (amf0/amf0.go): a marker-byte Discover function plays
// the role of amf0.Discovery, and Value plays the role of the single
// interface amf0 splits across Number/String/Object/etc — PackStream's
// marker space is large enough (and its struct tag space open-ended enough)
// that one tagged-union Value, rather than one Go type per marker, is the
// natural encoding. MarshalBinary/UnmarshalBinary from the amf0 idiom
// become Encoder.Encode/Decoder.Decode below; there is no Size method.
package packstream

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/grapholt/boltwire/bolterr"
)

// Kind discriminates the members of the Value sum type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindStruct:
		return "Struct"
	default:
		return "Unknown"
	}
}

// MapEntry is one key/value pair of an ordered Map. Keys must be strings and
// unique within one Map (spec §3 invariant).
type MapEntry struct {
	Key   string
	Value Value
}

// Value is the PackStream sum type (spec §3): Null, Bool, Int, Float,
// String, Bytes, List of Value, Map (ordered String->Value), or Struct (tag
// byte + ordered field list).
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bytes []byte
	List  []Value
	Map   []MapEntry

	Tag    byte
	Fields []Value
}

// Null returns the Null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int wraps a signed 64-bit integer value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float wraps an IEEE-754 double value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String wraps a UTF-8 string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Bytes wraps a byte-array value.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// List wraps an ordered list of values.
func List(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// Map wraps an ordered String->Value association. Map rejects no
// duplicates itself; callers constructing a Map programmatically are
// responsible for uniqueness, exactly as the encoder checks it on Encode.
func Map(entries ...MapEntry) Value { return Value{Kind: KindMap, Map: entries} }

// Struct wraps a tagged, ordered field list.
func Struct(tag byte, fields ...Value) Value {
	return Value{Kind: KindStruct, Tag: tag, Fields: fields}
}

// marker bytes, spec §4.3.
const (
	markerNull  byte = 0xC0
	markerFalse byte = 0xC2
	markerTrue  byte = 0xC3
	markerFloat byte = 0xC1

	markerInt8  byte = 0xC8
	markerInt16 byte = 0xC9
	markerInt32 byte = 0xCA
	markerInt64 byte = 0xCB

	markerBytes8  byte = 0xCC
	markerBytes16 byte = 0xCD
	markerBytes32 byte = 0xCE

	markerString8  byte = 0xD0
	markerString16 byte = 0xD1
	markerString32 byte = 0xD2

	markerList8  byte = 0xD4
	markerList16 byte = 0xD5
	markerList32 byte = 0xD6

	markerMap8  byte = 0xD8
	markerMap16 byte = 0xD9
	markerMap32 byte = 0xDA

	markerStruct8  byte = 0xDC
	markerStruct16 byte = 0xDD

	tinyStringBase byte = 0x80
	tinyListBase   byte = 0x90
	tinyMapBase    byte = 0xA0
	tinyStructBase byte = 0xB0

	tinyPositiveMax int8 = 0x7F // 127
	tinyNegativeMin int8 = -16  // 0xF0 two's complement
)

// Discover classifies a lead marker byte, mirroring amf0.Discovery's role
// of dispatching on the first byte of an encoded value.
func Discover(marker byte) (Kind, error) {
	switch {
	case marker == markerNull:
		return KindNull, nil
	case marker == markerFalse || marker == markerTrue:
		return KindBool, nil
	case marker == markerFloat:
		return KindFloat, nil
	case marker == markerInt8 || marker == markerInt16 || marker == markerInt32 || marker == markerInt64:
		return KindInt, nil
	case int8(marker) >= tinyNegativeMin && int8(marker) <= tinyPositiveMax:
		return KindInt, nil
	case marker == markerBytes8 || marker == markerBytes16 || marker == markerBytes32:
		return KindBytes, nil
	case marker&0xF0 == tinyStringBase || marker == markerString8 || marker == markerString16 || marker == markerString32:
		return KindString, nil
	case marker&0xF0 == tinyListBase || marker == markerList8 || marker == markerList16 || marker == markerList32:
		return KindList, nil
	case marker&0xF0 == tinyMapBase || marker == markerMap8 || marker == markerMap16 || marker == markerMap32:
		return KindMap, nil
	case marker&0xF0 == tinyStructBase || marker == markerStruct8 || marker == markerStruct16:
		return KindStruct, nil
	default:
		return 0, bolterr.Protocol(nil, "unknown packstream marker 0x%02X", marker)
	}
}

// Encoder writes Values to an underlying stream in PackStream form.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder wraps w for PackStream encoding.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Flush pushes any buffered bytes to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Encode writes v in its smallest valid PackStream encoding (spec §4.3:
// "Integers are written in the smallest encoding that fits the value").
func (e *Encoder) Encode(v Value) error {
	switch v.Kind {
	case KindNull:
		return e.writeByte(markerNull)
	case KindBool:
		if v.Bool {
			return e.writeByte(markerTrue)
		}
		return e.writeByte(markerFalse)
	case KindInt:
		return e.encodeInt(v.Int)
	case KindFloat:
		return e.encodeFloat(v.Float)
	case KindString:
		return e.encodeString(v.Str)
	case KindBytes:
		return e.encodeBytes(v.Bytes)
	case KindList:
		return e.encodeList(v.List)
	case KindMap:
		return e.encodeMap(v.Map)
	case KindStruct:
		return e.encodeStruct(v.Tag, v.Fields)
	default:
		return bolterr.Client(nil, "encode: unknown value kind %v", v.Kind)
	}
}

func (e *Encoder) writeByte(b byte) error {
	if err := e.w.WriteByte(b); err != nil {
		return bolterr.Transport(err, "write marker byte")
	}
	return nil
}

func (e *Encoder) write(p []byte) error {
	if _, err := e.w.Write(p); err != nil {
		return bolterr.Transport(err, "write bytes")
	}
	return nil
}

func (e *Encoder) encodeInt(i int64) error {
	switch {
	case i >= int64(tinyNegativeMin) && i <= int64(tinyPositiveMax):
		return e.writeByte(byte(int8(i)))
	case i >= math.MinInt8 && i <= math.MaxInt8:
		return e.write(append([]byte{markerInt8}, byte(int8(i))))
	case i >= math.MinInt16 && i <= math.MaxInt16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(int16(i)))
		return e.write(append([]byte{markerInt16}, buf[:]...))
	case i >= math.MinInt32 && i <= math.MaxInt32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(int32(i)))
		return e.write(append([]byte{markerInt32}, buf[:]...))
	default:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(i))
		return e.write(append([]byte{markerInt64}, buf[:]...))
	}
}

func (e *Encoder) encodeFloat(f float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	return e.write(append([]byte{markerFloat}, buf[:]...))
}

func (e *Encoder) encodeString(s string) error {
	if !utf8.ValidString(s) {
		return bolterr.Protocol(nil, "string is not valid utf-8")
	}
	n := len(s)
	switch {
	case n <= 15:
		if err := e.writeByte(tinyStringBase | byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint8:
		if err := e.write([]byte{markerString8, byte(n)}); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		if err := e.write(append([]byte{markerString16}, buf[:]...)); err != nil {
			return err
		}
	default:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		if err := e.write(append([]byte{markerString32}, buf[:]...)); err != nil {
			return err
		}
	}
	return e.write([]byte(s))
}

func (e *Encoder) encodeBytes(b []byte) error {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		if err := e.write([]byte{markerBytes8, byte(n)}); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		if err := e.write(append([]byte{markerBytes16}, buf[:]...)); err != nil {
			return err
		}
	default:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		if err := e.write(append([]byte{markerBytes32}, buf[:]...)); err != nil {
			return err
		}
	}
	return e.write(b)
}

func (e *Encoder) encodeList(list []Value) error {
	n := len(list)
	switch {
	case n <= 15:
		if err := e.writeByte(tinyListBase | byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint8:
		if err := e.write([]byte{markerList8, byte(n)}); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		if err := e.write(append([]byte{markerList16}, buf[:]...)); err != nil {
			return err
		}
	default:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		if err := e.write(append([]byte{markerList32}, buf[:]...)); err != nil {
			return err
		}
	}
	for _, item := range list {
		if err := e.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeMap(m []MapEntry) error {
	seen := make(map[string]struct{}, len(m))
	for _, entry := range m {
		if _, dup := seen[entry.Key]; dup {
			return bolterr.Client(nil, "duplicate map key %q on encode", entry.Key)
		}
		seen[entry.Key] = struct{}{}
	}

	n := len(m)
	switch {
	case n <= 15:
		if err := e.writeByte(tinyMapBase | byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint8:
		if err := e.write([]byte{markerMap8, byte(n)}); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		if err := e.write(append([]byte{markerMap16}, buf[:]...)); err != nil {
			return err
		}
	default:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		if err := e.write(append([]byte{markerMap32}, buf[:]...)); err != nil {
			return err
		}
	}
	for _, entry := range m {
		if err := e.encodeString(entry.Key); err != nil {
			return err
		}
		if err := e.Encode(entry.Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeStruct(tag byte, fields []Value) error {
	n := len(fields)
	switch {
	case n <= 15:
		if err := e.writeByte(tinyStructBase | byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint8:
		if err := e.write([]byte{markerStruct8, byte(n)}); err != nil {
			return err
		}
	default:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		if err := e.write(append([]byte{markerStruct16}, buf[:]...)); err != nil {
			return err
		}
	}
	if err := e.writeByte(tag); err != nil {
		return err
	}
	for _, f := range fields {
		if err := e.Encode(f); err != nil {
			return err
		}
	}
	return nil
}

// Decoder reads Values out of an underlying stream.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for PackStream decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads one complete Value, recursing into nested lists/maps/structs.
func (d *Decoder) Decode() (Value, error) {
	marker, err := d.r.ReadByte()
	if err != nil {
		return Value{}, bolterr.Transport(err, "read marker byte")
	}

	switch {
	case marker == markerNull:
		return Null(), nil
	case marker == markerFalse:
		return Bool(false), nil
	case marker == markerTrue:
		return Bool(true), nil
	case marker == markerFloat:
		return d.decodeFloat()
	case marker == markerInt8:
		return d.decodeIntN(1, true)
	case marker == markerInt16:
		return d.decodeIntN(2, true)
	case marker == markerInt32:
		return d.decodeIntN(4, true)
	case marker == markerInt64:
		return d.decodeIntN(8, true)
	case int8(marker) >= tinyNegativeMin && int8(marker) <= tinyPositiveMax:
		return Int(int64(int8(marker))), nil
	case marker == markerBytes8:
		return d.decodeBytesN(1)
	case marker == markerBytes16:
		return d.decodeBytesN(2)
	case marker == markerBytes32:
		return d.decodeBytesN(4)
	case marker&0xF0 == tinyStringBase:
		return d.decodeStringLen(int(marker & 0x0F))
	case marker == markerString8:
		return d.decodeStringN(1)
	case marker == markerString16:
		return d.decodeStringN(2)
	case marker == markerString32:
		return d.decodeStringN(4)
	case marker&0xF0 == tinyListBase:
		return d.decodeListLen(int(marker & 0x0F))
	case marker == markerList8:
		return d.decodeListN(1)
	case marker == markerList16:
		return d.decodeListN(2)
	case marker == markerList32:
		return d.decodeListN(4)
	case marker&0xF0 == tinyMapBase:
		return d.decodeMapLen(int(marker & 0x0F))
	case marker == markerMap8:
		return d.decodeMapN(1)
	case marker == markerMap16:
		return d.decodeMapN(2)
	case marker == markerMap32:
		return d.decodeMapN(4)
	case marker&0xF0 == tinyStructBase:
		return d.decodeStructLen(int(marker & 0x0F))
	case marker == markerStruct8:
		return d.decodeStructN(1)
	case marker == markerStruct16:
		return d.decodeStructN(2)
	default:
		return Value{}, bolterr.Protocol(nil, "unknown packstream marker 0x%02X", marker)
	}
}

func (d *Decoder) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, bolterr.Transport(err, "read %d bytes", n)
	}
	return buf, nil
}

func (d *Decoder) readLength(n int) (int, error) {
	buf, err := d.readN(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return int(buf[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return int(binary.BigEndian.Uint32(buf)), nil
	default:
		return 0, bolterr.Protocol(nil, "unsupported length width %d", n)
	}
}

func (d *Decoder) decodeFloat() (Value, error) {
	buf, err := d.readN(8)
	if err != nil {
		return Value{}, err
	}
	return Float(math.Float64frombits(binary.BigEndian.Uint64(buf))), nil
}

func (d *Decoder) decodeIntN(n int, signed bool) (Value, error) {
	buf, err := d.readN(n)
	if err != nil {
		return Value{}, err
	}
	var u uint64
	for _, b := range buf {
		u = u<<8 | uint64(b)
	}
	switch n {
	case 1:
		return Int(int64(int8(u))), nil
	case 2:
		return Int(int64(int16(u))), nil
	case 4:
		return Int(int64(int32(u))), nil
	default:
		return Int(int64(u)), nil
	}
}

func (d *Decoder) decodeBytesN(lenWidth int) (Value, error) {
	n, err := d.readLength(lenWidth)
	if err != nil {
		return Value{}, err
	}
	buf, err := d.readN(n)
	if err != nil {
		return Value{}, err
	}
	return Bytes(buf), nil
}

func (d *Decoder) decodeStringN(lenWidth int) (Value, error) {
	n, err := d.readLength(lenWidth)
	if err != nil {
		return Value{}, err
	}
	return d.decodeStringLen(n)
}

func (d *Decoder) decodeStringLen(n int) (Value, error) {
	buf, err := d.readN(n)
	if err != nil {
		return Value{}, err
	}
	if !utf8.Valid(buf) {
		return Value{}, bolterr.Protocol(nil, "string is not valid utf-8")
	}
	return String(string(buf)), nil
}

func (d *Decoder) decodeListN(lenWidth int) (Value, error) {
	n, err := d.readLength(lenWidth)
	if err != nil {
		return Value{}, err
	}
	return d.decodeListLen(n)
}

func (d *Decoder) decodeListLen(n int) (Value, error) {
	items := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.Decode()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	return List(items...), nil
}

func (d *Decoder) decodeMapN(lenWidth int) (Value, error) {
	n, err := d.readLength(lenWidth)
	if err != nil {
		return Value{}, err
	}
	return d.decodeMapLen(n)
}

func (d *Decoder) decodeMapLen(n int) (Value, error) {
	entries := make([]MapEntry, 0, n)
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		key, err := d.Decode()
		if err != nil {
			return Value{}, err
		}
		if key.Kind != KindString {
			return Value{}, bolterr.Protocol(nil, "map key is not a string: %v", key.Kind)
		}
		if _, dup := seen[key.Str]; dup {
			return Value{}, bolterr.Protocol(nil, "duplicate map key %q on decode", key.Str)
		}
		seen[key.Str] = struct{}{}

		val, err := d.Decode()
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, MapEntry{Key: key.Str, Value: val})
	}
	return Map(entries...), nil
}

func (d *Decoder) decodeStructN(lenWidth int) (Value, error) {
	n, err := d.readLength(lenWidth)
	if err != nil {
		return Value{}, err
	}
	return d.decodeStructLen(n)
}

func (d *Decoder) decodeStructLen(n int) (Value, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return Value{}, bolterr.Transport(err, "read struct tag byte")
	}
	fields := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.Decode()
		if err != nil {
			return Value{}, bolterr.Protocol(bolterr.Wrapf(err, "struct field %d decode failed", i), "struct arity mismatch under tag 0x%02X", tag)
		}
		fields = append(fields, v)
	}
	return Struct(tag, fields...), nil
}
