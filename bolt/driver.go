package bolt

import (
	"context"
	"hash/fnv"

	"github.com/grapholt/boltwire/bolterr"
	"github.com/grapholt/boltwire/logger"
	"github.com/grapholt/boltwire/messaging"
	"github.com/grapholt/boltwire/packstream"
	"github.com/grapholt/boltwire/session"
	"github.com/grapholt/boltwire/structs"
	"github.com/grapholt/boltwire/transport"
	"github.com/rs/xid"
)

// supportedVersions are the protocol versions this driver proposes during
// the handshake (spec §4.5), newest first.
var supportedVersions = []messaging.Version{4, 3}

// Driver opens connections to one address using a fixed Config. It holds
// no pool of its own — spec §4.6 treats pooling as an external
// collaborator — but exposes the acquire/release shape that collaborator
// needs.
type Driver struct {
	host string
	port int
	cfg  Config
	reg  *structs.Registry
}

// NewDriver builds a Driver targeting host:port with cfg. A cfg whose
// ConnectionTimeout is zero is treated as unset and replaced as a whole by
// DefaultConfig; none of its other fields are kept.
func NewDriver(host string, port int, cfg Config) *Driver {
	if cfg.ConnectionTimeout == 0 {
		cfg = DefaultConfig()
	}
	return &Driver{host: host, port: port, cfg: cfg, reg: structs.NewRegistry()}
}

// connID implements logger.Context so every log line belonging to one
// connection's engine and handshake carries a stable correlation id. Each
// connection is tagged with a fresh rs/xid identifier (globally sortable,
// collision-free across processes) folded down to the int Cid() expects.
type connID struct {
	id xid.ID
}

func (c connID) Cid() int {
	h := fnv.New32a()
	_, _ = h.Write(c.id.Bytes())
	return int(h.Sum32())
}

func (c connID) String() string { return c.id.String() }

// Session opens a new connection (resolve, TCP connect, optional TLS,
// handshake, HELLO) and returns a Session bound to it. The connection is
// released (closed) when the Session is closed (spec §4.6 acquire/release
// contract, narrowed to a single unpooled connection per Session here).
func (d *Driver) Session(ctx context.Context) (*session.Session, error) {
	conn, err := transport.Connect(ctx, d.host, d.port, transport.Options{
		Encrypted:         d.cfg.Encryption == EncryptionRequired,
		Trust:             d.cfg.TrustStrategy,
		IPv6Enabled:       d.cfg.IPv6Enabled,
		ConnectionTimeout: d.cfg.ConnectionTimeout,
		SocketKeepalive:   d.cfg.SocketKeepalive,
	})
	if err != nil {
		return nil, err
	}

	id := connID{id: xid.New()}
	logger.T(id, "connected to", d.host, d.port)

	hs := messaging.Handshake{}
	if err := hs.Propose(conn, supportedVersions); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := hs.ReadSelected(conn); err != nil {
		conn.Close()
		return nil, err
	}

	engine := messaging.NewEngine(conn, conn, d.reg, id, d.cfg.DefaultReadBufferSize, d.cfg.MaxReadBufferSize)

	if err := d.hello(engine); err != nil {
		conn.Close()
		return nil, err
	}

	// release stands in for the pool's keep-or-discard decision (spec §4.6);
	// this Driver has no pool of its own, so both branches disconnect, but
	// an unhealthy connection is logged as discarded rather than released
	// so a real pool collaborator's logs and this one agree on cause.
	released := false
	release := func(healthy bool) {
		if released {
			return
		}
		released = true
		if healthy {
			logger.T(id, "releasing connection")
		} else {
			logger.W(id, "discarding connection after fatal transport/protocol error")
		}
		if err := transport.Disconnect(conn); err != nil {
			logger.W(id, "disconnect failed:", err)
		}
	}

	return session.New(engine, d.reg, release), nil
}

func (d *Driver) hello(engine *messaging.Engine) error {
	extra := packstream.Map(
		packstream.MapEntry{Key: "user_agent", Value: packstream.String(d.cfg.UserAgent)},
		packstream.MapEntry{Key: "scheme", Value: packstream.String(authScheme(d.cfg.Auth))},
		packstream.MapEntry{Key: "principal", Value: packstream.String(d.cfg.Auth.Principal)},
		packstream.MapEntry{Key: "credentials", Value: packstream.String(d.cfg.Auth.Credentials)},
	)

	var helloErr error
	h := &messaging.Handler{
		OnFailure: func(f *structs.Failure) {
			helloErr = bolterr.Security(nil, "hello rejected: %v: %v", f.Code(), f.Message())
		},
	}
	if err := engine.Enqueue(&structs.Hello{Extra: extra}, h); err != nil {
		return err
	}
	if err := engine.Sync(); err != nil {
		return err
	}
	return helloErr
}

func authScheme(a Auth) string {
	if a.Scheme != "" {
		return a.Scheme
	}
	if a.Principal == "" && a.Credentials == "" {
		return "none"
	}
	return "basic"
}
