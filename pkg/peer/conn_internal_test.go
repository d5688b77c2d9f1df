package peer

import (
	"net"
	"testing"
	"time"

	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/message"
)

func TestHandshakeRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	var hash, name [20]byte
	copy(hash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(name[:], "00112233445566778899")

	done := make(chan error, 1)
	go func() {
		h, err := message.ReadHandshake(server)
		if err != nil {
			done <- err
			return
		}
		if err := h.Verify(hash); err != nil {
			done <- err
			return
		}
		reply := message.NewHandshake(hash, name)
		_, err = server.Write(reply.Serialize())
		done <- err
	}()

	res, err := handshake(client, hash, name, time.Second)
	if err != nil {
		t.Fatalf("handshake() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("server side error = %v", err)
	}
	if res.InfoHash != hash {
		t.Errorf("handshake() hash = %x, want %x", res.InfoHash, hash)
	}
}

func TestGetBitfield(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	want := []byte{0b10100000}
	go func() {
		m := &message.Message{ID: message.Bitfield, Payload: want}
		server.Write(m.Serialize())
	}()

	b, err := getBitfield(client, time.Second)
	if err != nil {
		t.Fatalf("getBitfield() error = %v", err)
	}
	if !b.Has(0) || b.Has(1) || !b.Has(2) {
		t.Errorf("getBitfield() = %08b, want bits [0,2] set", b.Bytes())
	}
}

func TestHandshakeDoesNotRequireBitfield(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	var hash, name [20]byte
	copy(hash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(name[:], "00112233445566778899")

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		hs, err := message.ReadHandshake(conn)
		if err != nil || hs.Verify(hash) != nil {
			return
		}
		reply := message.NewHandshake(hash, name)
		conn.Write(reply.Serialize())
		// deliberately never sends a Bitfield message, as a seed that
		// announces everything via Have instead is free to do.
	}()

	addr := ln.Addr().(*net.TCPAddr)
	p := Peer{IP: addr.IP, Port: uint16(addr.Port)}

	cfg := config.Default()
	cfg.ConnectTimeout = time.Second
	cfg.HandshakeTimeout = time.Second

	conn, err := Handshake(p, hash, name, cfg)
	if err != nil {
		t.Fatalf("Handshake() error = %v, want success without a Bitfield", err)
	}
	defer conn.Conn.Close()

	if conn.Name != name {
		t.Errorf("conn.Name = %x, want %x", conn.Name, name)
	}
}

func TestGetBitfieldWrongMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		m := &message.Message{ID: message.Choke}
		server.Write(m.Serialize())
	}()

	if _, err := getBitfield(client, time.Second); err == nil {
		t.Errorf("getBitfield() on a non-Bitfield message should error")
	}
}
