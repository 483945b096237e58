package bolterr

import (
	"fmt"
	"testing"
)

func TestIsClassifiesDirectError(t *testing.T) {
	err := Transport(nil, "socket closed")
	if !Is(err, ClassTransport) {
		t.Fatalf("expected ClassTransport")
	}
	if Is(err, ClassProtocol) {
		t.Fatalf("did not expect ClassProtocol")
	}
}

func TestIsClassifiesThroughWrapfChain(t *testing.T) {
	base := Protocol(nil, "unknown packstream marker 0x99")
	wrapped := Wrapf(base, "struct field %d decode failed", 2)
	wrappedAgain := Wrapf(wrapped, "decode struct tag 0x%02X", byte(0x4E))

	if !Is(wrappedAgain, ClassProtocol) {
		t.Fatalf("expected classification to survive two layers of Wrapf")
	}
	if Is(wrappedAgain, ClassTransport) {
		t.Fatalf("did not expect ClassTransport")
	}
	if wrappedAgain.Error() == "" {
		t.Fatalf("expected wrapped error message to be non-empty")
	}
}

func TestIsFalseForAnOrdinaryError(t *testing.T) {
	if Is(fmt.Errorf("plain error, no taxonomy"), ClassDatabase) {
		t.Fatalf("a plain error should not classify as any taxonomy class")
	}
}

func TestWrapPreservesUnderlyingMessage(t *testing.T) {
	base := Client(nil, "duplicate map key %q on encode", "a")
	wrapped := Wrap(base, "encode request")
	if !Is(wrapped, ClassClient) {
		t.Fatalf("expected ClassClient to survive Wrap")
	}
}
