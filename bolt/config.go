// Package bolt is the application-facing façade (spec §6): a Driver that
// opens connections per Config, Sessions that run statements and manage
// transactions, and a synchronous blocking API that drives the async wire
// stack to completion on the calling goroutine rather than running a
// second message pipeline (spec §9 "Synchronous façade over asynchronous
// core").
package bolt

import (
	"time"

	"github.com/grapholt/boltwire/transport"
)

// Encryption selects the encryption configuration option (spec §6).
type Encryption int

const (
	EncryptionOff Encryption = iota
	EncryptionRequired
)

// Auth carries the principal and credentials sent in HELLO (spec §6).
type Auth struct {
	Scheme      string
	Principal   string
	Credentials string
}

// Config carries every recognized configuration option from spec §6.
type Config struct {
	Encryption    Encryption
	TrustStrategy transport.TrustManager

	IPv6Enabled bool

	ConnectionTimeout time.Duration
	SocketKeepalive   bool

	DefaultReadBufferSize int
	MaxReadBufferSize     int

	UserAgent string
	Auth      Auth
}

// DefaultConfig returns the configuration a Driver uses when no explicit
// Config is supplied: encryption required, system CA trust, IPv4-only,
// a 30s connect timeout, keepalive on, and an 8KiB/16MiB buffer policy
// that matches the oryx default chunk-stream sizing conventions scaled up
// for PackStream's larger structures.
func DefaultConfig() Config {
	return Config{
		Encryption:            EncryptionRequired,
		TrustStrategy:         transport.NewTrustSystemCAsManager(),
		IPv6Enabled:           false,
		ConnectionTimeout:     30 * time.Second,
		SocketKeepalive:       true,
		DefaultReadBufferSize: 8 * 1024,
		MaxReadBufferSize:     16 * 1024 * 1024,
		UserAgent:             "boltwire/1.0",
	}
}
