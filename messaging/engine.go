// Package messaging implements the message engine (spec §4.4) and the
// protocol version dispatcher (spec §4.5): encoding outgoing request
// messages, decoding server responses, and dispatching them to per-request
// response handlers in strict FIFO order, plus the connect-time handshake
// that selects a protocol version.
//
// Grounded on rtmp.Protocol (rtmp/rtmp.go): one struct owning the reader,
// writer, and an outstanding-work queue, with ReadMessage/WritePacket-style
// methods driving it. RTMP keys outstanding chunk streams by chunk-stream
// id because RTMP interleaves several logical streams on one wire; Bolt's
// request/response pairing is strictly sequential, so the "keyed store"
// becomes a plain FIFO slice here instead of rtmp's map.
package messaging

import (
	"bytes"
	"io"

	"github.com/grapholt/boltwire/bolterr"
	"github.com/grapholt/boltwire/chunking"
	"github.com/grapholt/boltwire/logger"
	"github.com/grapholt/boltwire/metrics"
	"github.com/grapholt/boltwire/packstream"
	"github.com/grapholt/boltwire/structs"
)

// Handler receives the callbacks for exactly one outstanding request (spec
// §4.4). OnRecord may be called any number of times before the terminal
// callback (OnSuccess, OnFailure, or OnIgnored) is invoked exactly once.
type Handler struct {
	OnRecord  func(fields packstream.Value)
	OnSuccess func(metadata packstream.Value)
	OnFailure func(f *structs.Failure)
	OnIgnored func()
}

func (h *Handler) deliverRecord(v packstream.Value) {
	if h.OnRecord != nil {
		h.OnRecord(v)
	}
}

func (h *Handler) deliverTerminal(resp structs.Handler) {
	switch r := resp.(type) {
	case *structs.Success:
		if h.OnSuccess != nil {
			h.OnSuccess(r.Metadata)
		}
	case *structs.Failure:
		if h.OnFailure != nil {
			h.OnFailure(r)
		}
	case *structs.Ignored:
		if h.OnIgnored != nil {
			h.OnIgnored()
		}
	}
}

// Engine is the request/response dispatcher for one connection.
type Engine struct {
	cw  *chunking.Writer
	cr  *chunking.Reader
	reg *structs.Registry

	queue  []*Handler
	broken bool
	ctx    logger.Context
}

// NewEngine builds an Engine over conn's byte stream. defaultBufSize and
// maxBufSize are the chunk reader's default_read_buffer_size and
// max_read_buffer_size configuration options (spec §6).
func NewEngine(r io.Reader, w io.Writer, reg *structs.Registry, ctx logger.Context, defaultBufSize, maxBufSize int) *Engine {
	return &Engine{
		cw:  chunking.NewWriter(w),
		cr:  chunking.NewReader(r, defaultBufSize, maxBufSize),
		reg: reg,
		ctx: ctx,
	}
}

// Enqueue encodes msg and writes it to the wire, then appends h to the
// FIFO queue of outstanding handlers. It does not block on reading a
// response; messages may be pipelined (spec §4.4).
func (e *Engine) Enqueue(msg structs.Handler, h *Handler) error {
	if e.broken {
		return bolterr.Transport(nil, "connection is broken, cannot enqueue")
	}

	var buf bytes.Buffer
	enc := packstream.NewEncoder(&buf)
	if err := enc.Encode(e.reg.Encode(msg)); err != nil {
		e.breakConnection()
		return bolterr.Protocol(err, "encode request tag 0x%02X", msg.Tag())
	}
	if err := enc.Flush(); err != nil {
		e.breakConnection()
		return err
	}

	if err := e.cw.WriteMessage(buf.Bytes()); err != nil {
		e.breakConnection()
		return err
	}

	e.queue = append(e.queue, h)
	metrics.OutstandingHandlers.Set(float64(len(e.queue)))
	return nil
}

// Sync drains the FIFO queue, reading and dispatching response messages
// until every outstanding handler has received its terminal callback
// (spec §4.4 Flush). A fatal I/O or decode error completes every remaining
// handler with a transport/protocol failure and marks the connection
// broken (spec §4.4 "Fatal I/O error").
func (e *Engine) Sync() error {
	for len(e.queue) > 0 {
		if err := e.readOne(); err != nil {
			e.failAllOutstanding(err)
			e.breakConnection()
			return err
		}
	}
	return nil
}

func (e *Engine) readOne() error {
	payload, shouldLog, err := e.cr.ReadMessage()
	if shouldLog {
		logger.W(e.ctx, "chunk read buffer exceeded max capacity and was shrunk")
	}
	if err != nil {
		return err
	}

	dec := packstream.NewDecoder(bytes.NewReader(payload))
	v, err := dec.Decode()
	if err != nil {
		return bolterr.Protocol(err, "decode response message")
	}

	resp, err := e.reg.Decode(v)
	if err != nil {
		return err
	}

	if len(e.queue) == 0 {
		return bolterr.Protocol(nil, "received response with no outstanding handler")
	}
	head := e.queue[0]

	switch resp.(type) {
	case *structs.Record:
		head.deliverRecord(resp.(*structs.Record).Fields)
		return nil
	default:
		e.queue = e.queue[1:]
		metrics.OutstandingHandlers.Set(float64(len(e.queue)))
		head.deliverTerminal(resp)
		return nil
	}
}

// Reset sends a RESET request (spec §4.4, GLOSSARY): every handler already
// queued ahead of it observes an IGNORED outcome, and RESET's own handler
// observes the terminating SUCCESS. Sync drives both synchronously.
func (e *Engine) Reset() error {
	if err := e.Enqueue(&structs.Reset{}, &Handler{}); err != nil {
		return err
	}
	return e.Sync()
}

// Broken reports whether a fatal error has already closed out this engine.
func (e *Engine) Broken() bool { return e.broken }

func (e *Engine) breakConnection() {
	e.broken = true
}

// failAllOutstanding completes every queued handler with a transport
// failure (spec §4.4 "Fatal I/O error: all outstanding handlers are
// completed with a transport failure").
func (e *Engine) failAllOutstanding(cause error) {
	for _, h := range e.queue {
		if h.OnFailure != nil {
			h.OnFailure(&structs.Failure{Metadata: packstream.Map(
				packstream.MapEntry{Key: "code", Value: packstream.String("BoltWire.TransportError")},
				packstream.MapEntry{Key: "message", Value: packstream.String(cause.Error())},
			)})
		}
	}
	e.queue = nil
	metrics.OutstandingHandlers.Set(0)
}
