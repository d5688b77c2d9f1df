package peer_test

import (
	"net"
	"testing"

	"github.com/ravel-io/mtor/pkg/peer"
)

func TestUnmarshal(t *testing.T) {
	buf := []byte{
		127, 0, 0, 1, 0x1A, 0xE1, // 127.0.0.1:6881
		10, 0, 0, 5, 0x1A, 0xE2, // 10.0.0.5:6882
	}

	peers, err := peer.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("Unmarshal() returned %d peers, want 2", len(peers))
	}

	if peers[0].String() != "127.0.0.1:6881" {
		t.Errorf("peers[0] = %q, want %q", peers[0].String(), "127.0.0.1:6881")
	}
	if peers[1].String() != "10.0.0.5:6882" {
		t.Errorf("peers[1] = %q, want %q", peers[1].String(), "10.0.0.5:6882")
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	if _, err := peer.Unmarshal([]byte{1, 2, 3}); err == nil {
		t.Errorf("Unmarshal() on a malformed peer list should error")
	}
}

func TestUnmarshalEmpty(t *testing.T) {
	peers, err := peer.Unmarshal(nil)
	if err != nil {
		t.Fatalf("Unmarshal(nil) error = %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("Unmarshal(nil) returned %d peers, want 0", len(peers))
	}
}

func TestPeerAddr(t *testing.T) {
	p := peer.Peer{IP: net.IPv4(127, 0, 0, 1), Port: 6881}
	addr := p.Addr()
	if addr.IP.String() != "127.0.0.1" || addr.Port != 6881 {
		t.Errorf("Addr() = %v, want 127.0.0.1:6881", addr)
	}
}
