// Copyright © 2021 Rak Laptudirm <raklaptudirm@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package peer

import (
	"fmt"
	"net"
	"time"

	"github.com/ravel-io/mtor/pkg/bitfield"
	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/message"
)

// Conn represents a p2p connection to a peer.
type Conn struct {
	Conn     net.Conn          // the connection with the peer
	Choked   bool              // wether the peer is choking
	Peer     Peer              // the peer with the connection
	Bitfield bitfield.Bitfield // peer's bitfield
	InfoHash [20]byte          // torrent infohash
	Name     [20]byte          // peer's identifier

	cfg config.Config
}

// Read reads a Message from the Conn, using cfg's frame timeout and
// maxPayload as the frame size bound (pass message.ControlFrameMax for
// anything but a Piece exchange).
func (c *Conn) Read(maxPayload int) (*message.Message, error) {
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.FrameTimeout))
	defer c.Conn.SetReadDeadline(time.Time{})
	return message.Read(c.Conn, maxPayload)
}

// send writes a serialized message to the Conn.
func (c *Conn) send(m *message.Message) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.FrameTimeout))
	defer c.Conn.SetWriteDeadline(time.Time{})
	_, err := c.Conn.Write(m.Serialize())
	return err
}

// Choke sends a Choke message to the Conn.
func (c *Conn) Choke() error {
	return c.send(&message.Message{ID: message.Choke})
}

// UnChoke sends an UnChoke message to the Conn.
func (c *Conn) UnChoke() error {
	return c.send(&message.Message{ID: message.UnChoke})
}

// Interested sends an Interested message to the Conn.
func (c *Conn) Interested() error {
	return c.send(&message.Message{ID: message.Interested})
}

// NotInterested sends a NotInterested message to the Conn.
func (c *Conn) NotInterested() error {
	return c.send(&message.Message{ID: message.NotInterested})
}

// Request sends a Request message to the Conn.
func (c *Conn) Request(index, begin, length int) error {
	return c.send(message.NewRequest(index, begin, length))
}

// Have announces a completed piece to the Conn.
func (c *Conn) Have(index int) error {
	return c.send(message.NewHave(index))
}

// handshake tries to complete a proper handshake with the peer.
func handshake(conn net.Conn, hash, name [20]byte, timeout time.Duration) (*message.Handshake, error) {
	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{}) // disable deadline

	// send a handshake to the peer
	req := message.NewHandshake(hash, name)
	_, err := conn.Write(req.Serialize())
	if err != nil {
		return nil, err
	}

	// await a handshake from the peer
	res, err := message.ReadHandshake(conn)
	if err != nil {
		return nil, err
	}

	// verify the peer's handshake
	if err := res.Verify(hash); err != nil {
		return nil, err
	}

	return res, nil
}

// getBitfield reads a serialized bitfield from the Conn.
func getBitfield(conn net.Conn, timeout time.Duration) (bitfield.Bitfield, error) {
	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{}) // disable deadline

	// await message from peer
	msg, err := message.Read(conn, message.ControlFrameMax)
	if err != nil {
		return bitfield.Bitfield{}, err
	}

	// expect Message of type Bitfield
	if msg.ID != message.Bitfield {
		return bitfield.Bitfield{}, fmt.Errorf("expected bitfield message, received %v", msg.ID)
	}

	return bitfield.New(msg.Payload), nil
}

// Handshake dials peer and completes the handshake, returning the
// resulting Conn. The Conn's Bitfield is left zero-valued: callers that
// need it must call FetchBitfield themselves. This is the whole of
// what the handshake subcommand needs, so it is not made to depend on
// the peer also sending a Bitfield message, which BEP 3 does not
// require a peer to send at all (an empty-bitfield seed may skip it
// entirely and announce every piece with Have instead).
func Handshake(peer Peer, hash, name [20]byte, cfg config.Config) (*Conn, error) {
	conn, err := net.DialTimeout("tcp", peer.String(), cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	res, err := handshake(conn, hash, name, cfg.HandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Conn{
		Conn:     conn,
		Choked:   true,
		Peer:     peer,
		InfoHash: hash,
		Name:     res.Identifier,
		cfg:      cfg,
	}, nil
}

// FetchBitfield awaits the peer's initial Bitfield message and stores
// it on c. Callers that need to know which pieces the peer has, such
// as the downloader, call this right after Handshake; the handshake
// subcommand does not.
func (c *Conn) FetchBitfield() error {
	b, err := getBitfield(c.Conn, c.cfg.HandshakeTimeout)
	if err != nil {
		return err
	}
	c.Bitfield = b
	return nil
}

// NewConn dials peer, completes the handshake and awaits its initial
// bitfield, and returns the resulting Conn.
func NewConn(peer Peer, hash, name [20]byte, cfg config.Config) (*Conn, error) {
	c, err := Handshake(peer, hash, name, cfg)
	if err != nil {
		return nil, err
	}

	if err := c.FetchBitfield(); err != nil {
		c.Conn.Close()
		return nil, err
	}

	return c, nil
}
