// Package chunking implements the Bolt chunk framer (spec §4.2): an
// arbitrary message payload is split into one or more big-endian
// 16-bit-length-prefixed chunks, terminated by a zero-length chunk.
//
// Modeled structurally on rtmp.Protocol's split-on-write / reassemble-on-read
// shape (rtmp/rtmp.go), but chunk boundaries here are purely a length-prefix
// framing concern — there is no per-chunk-stream header to track, so the
// reader/writer pair is considerably smaller than RTMP's chunk-stream state.
package chunking

import (
	"bufio"
	"encoding/binary"
	"io"
	"time"

	"github.com/grapholt/boltwire/bolterr"
	"github.com/grapholt/boltwire/metrics"
	"golang.org/x/time/rate"
)

// MaxChunkSize is the largest payload a single chunk may carry; the 16-bit
// length prefix caps it at 65535.
const MaxChunkSize = 0xFFFF

// terminator is the zero-length chunk marking end-of-message.
var terminator = [2]byte{0x00, 0x00}

// Writer accumulates bytes for one message at a time, splitting on
// MaxChunkSize boundaries, and flushes a terminator when the message ends.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w for chunked message writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteMessage writes payload as one or more chunks followed by the
// zero-length terminator, then flushes to the underlying stream.
func (cw *Writer) WriteMessage(payload []byte) error {
	for len(payload) > 0 {
		n := len(payload)
		if n > MaxChunkSize {
			n = MaxChunkSize
		}
		if err := cw.writeChunk(payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
	}
	if _, err := cw.w.Write(terminator[:]); err != nil {
		return bolterr.Transport(err, "write chunk terminator")
	}
	return cw.w.Flush()
}

func (cw *Writer) writeChunk(b []byte) error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(b)))
	if _, err := cw.w.Write(hdr[:]); err != nil {
		return bolterr.Transport(err, "write chunk header")
	}
	if _, err := cw.w.Write(b); err != nil {
		return bolterr.Transport(err, "write chunk payload")
	}
	return nil
}

// Reader reassembles complete messages out of the chunk stream. Its
// backing buffer is reused across messages and shrunk back to
// defaultCapacity once observed to exceed maxCapacity (spec §9 Open
// Question: measure real capacity, shrink exactly once per crossing).
type Reader struct {
	r   *bufio.Reader
	buf []byte

	defaultCapacity int
	maxCapacity     int

	shrinkLimiter *rate.Limiter
}

// NewReader wraps r for chunked message reading. defaultCapacity and
// maxCapacity correspond to the default_read_buffer_size and
// max_read_buffer_size configuration options (spec §6).
func NewReader(r io.Reader, defaultCapacity, maxCapacity int) *Reader {
	return &Reader{
		r:               bufio.NewReader(r),
		buf:             make([]byte, 0, defaultCapacity),
		defaultCapacity: defaultCapacity,
		maxCapacity:     maxCapacity,
		// one shrink log line per second is plenty; the shrink itself
		// always happens regardless of whether we log it.
		shrinkLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// ReadMessage blocks until one complete message has been reassembled from
// the chunk stream and returns its payload. The returned slice is only
// valid until the next call to ReadMessage. shouldLog reports that the
// buffer just crossed maxCapacity and the rate limiter allows logging it;
// the caller (messaging, which has connection context this package
// deliberately doesn't) decides what to do with that.
func (cr *Reader) ReadMessage() (payload []byte, shouldLog bool, err error) {
	cr.buf = cr.buf[:0]

	first := true
	for {
		var hdr [2]byte
		if _, err := io.ReadFull(cr.r, hdr[:]); err != nil {
			return nil, false, bolterr.Transport(err, "read chunk header")
		}
		n := binary.BigEndian.Uint16(hdr[:])

		if n == 0 {
			if first {
				return nil, false, bolterr.Protocol(nil, "empty message: terminator at start of message")
			}
			payload = cr.buf
			shouldLog = cr.maybeShrink()
			return payload, shouldLog, nil
		}

		start := len(cr.buf)
		cr.buf = append(cr.buf, make([]byte, n)...)
		if _, err := io.ReadFull(cr.r, cr.buf[start:]); err != nil {
			return nil, false, bolterr.Transport(err, "read chunk payload")
		}
		first = false
	}
}

// maybeShrink releases the backing array back to defaultCapacity once its
// capacity has been observed to exceed maxCapacity, exactly once per
// crossing. It always counts the event in metrics.BufferShrinks; it returns
// true only when the rate limiter also allows the accompanying log line.
func (cr *Reader) maybeShrink() bool {
	if cap(cr.buf) <= cr.maxCapacity {
		return false
	}
	metrics.BufferShrinks.Inc()
	allowed := cr.shrinkLimiter.Allow()
	cr.buf = make([]byte, 0, cr.defaultCapacity)
	return allowed
}
