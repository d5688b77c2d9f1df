package client_test

import (
	"crypto/sha1"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravel-io/mtor/pkg/bitfield"
	"github.com/ravel-io/mtor/pkg/client"
	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/message"
	"github.com/ravel-io/mtor/pkg/peer"
	"github.com/ravel-io/mtor/pkg/torrentfile"
)

// fakeSeeder accepts one connection, completes the handshake, serves
// its bitfield, then answers every Request with the matching slice of
// pieceData.
func fakeSeeder(t *testing.T, hash, peerID [20]byte, pieceData []byte, numPieces int) net.Listener {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

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
		reply := message.NewHandshake(hash, peerID)
		if _, err := conn.Write(reply.Serialize()); err != nil {
			return
		}

		bf := bitfield.NewEmpty(numPieces)
		for i := 0; i < numPieces; i++ {
			bf.Set(i)
		}
		bfMsg := &message.Message{ID: message.Bitfield, Payload: bf.Bytes()}
		conn.Write(bfMsg.Serialize())

		for {
			m, err := message.Read(conn, message.ControlFrameMax)
			if err != nil {
				return
			}
			if m == nil {
				continue
			}

			switch m.ID {
			case message.Interested:
				uc := &message.Message{ID: message.UnChoke}
				conn.Write(uc.Serialize())
			case message.Request:
				index, begin, length, err := message.ParseRequest(m)
				if err != nil {
					return
				}
				block := pieceData[begin : begin+length]
				payload := make([]byte, 8+len(block))
				binary.BigEndian.PutUint32(payload[0:4], uint32(index))
				binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
				copy(payload[8:], block)
				pieceMsg := &message.Message{ID: message.Piece, Payload: payload}
				conn.Write(pieceMsg.Serialize())
			}
		}
	}()

	return ln
}

func TestDownloadPiece(t *testing.T) {
	pieceData := make([]byte, config.BlockSize*2+100)
	for i := range pieceData {
		pieceData[i] = byte(i)
	}
	want := sha1.Sum(pieceData)

	var hash, peerID [20]byte
	copy(hash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(peerID[:], "00112233445566778899")

	ln := fakeSeeder(t, hash, peerID, pieceData, 1)
	defer ln.Close()

	pieces := string(want[:])
	f := &torrentfile.File{
		Announce: "http://tracker.test/",
		Info: torrentfile.Info{
			PieceLen: len(pieceData),
			Pieces:   pieces,
			Name:     "test",
			Length:   len(pieceData),
		},
	}

	tr := client.Torrent{File: f, PeerID: peerID}

	addr := ln.Addr().(*net.TCPAddr)
	target := peer.Peer{IP: addr.IP, Port: uint16(addr.Port)}

	cfg := config.Default()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.FrameTimeout = 2 * time.Second

	got, err := client.DownloadPiece(tr, target, 0, cfg)
	if err != nil {
		t.Fatalf("DownloadPiece() error = %v", err)
	}
	if sha1.Sum(got) != want {
		t.Errorf("DownloadPiece() returned data with wrong hash")
	}
}

func TestDownloadWholeTorrent(t *testing.T) {
	pieceData := make([]byte, config.BlockSize+10)
	for i := range pieceData {
		pieceData[i] = byte(i * 3)
	}
	want := sha1.Sum(pieceData)

	var hash, peerID [20]byte
	copy(hash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(peerID[:], "00112233445566778899")

	ln := fakeSeeder(t, hash, peerID, pieceData, 1)
	defer ln.Close()

	f := &torrentfile.File{
		Announce: "http://tracker.test/",
		Info: torrentfile.Info{
			PieceLen: len(pieceData),
			Pieces:   string(want[:]),
			Name:     "test",
			Length:   len(pieceData),
		},
	}
	tr := client.Torrent{File: f, PeerID: peerID}

	addr := ln.Addr().(*net.TCPAddr)
	target := peer.Peer{IP: addr.IP, Port: uint16(addr.Port)}

	cfg := config.Default()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.FrameTimeout = 2 * time.Second

	manager := &memManager{pieces: make(map[int][]byte)}
	log := zerolog.Nop()

	if err := client.Download(tr, []peer.Peer{target}, manager, cfg, log); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if sha1.Sum(manager.pieces[0]) != want {
		t.Errorf("Download() stored piece with wrong hash")
	}
}

type memManager struct {
	pieces map[int][]byte
}

func (m *memManager) Init() error { return nil }
func (m *memManager) Put(index int, data []byte) error {
	m.pieces[index] = append([]byte(nil), data...)
	return nil
}
func (m *memManager) Get(index int) ([]byte, error) { return m.pieces[index], nil }
func (m *memManager) Close() error                  { return nil }
