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

package client

import (
	"crypto/sha1"
	"errors"

	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/message"
	"github.com/ravel-io/mtor/pkg/peer"
)

// ErrChokedDuringTransfer is returned by downloadPiece when the peer
// chokes us while a request for this piece is outstanding. A peer is
// free to choke at any time, but once it has, the blocks already on
// the wire to it are as good as lost: it owes us nothing, so the
// transfer is aborted rather than left to stall on a backlog that may
// never drain.
var ErrChokedDuringTransfer = errors.New("client: choked during transfer")

// piece is a unit of work: a piece that still needs downloading.
type piece struct {
	index  int
	hash   [20]byte
	length int
}

// pieceResult is a downloaded and verified piece.
type pieceResult struct {
	index int
	value []byte
}

// state names the stage of a single piece transfer, per the peer wire
// handshake sequence of BEP 3: a connection starts AwaitingBitfield,
// announces Interesting once it has decided the peer is useful,
// and cannot start Requesting blocks until the peer has UnChoked it.
type state int

const (
	AwaitingBitfield state = iota
	Interesting
	AwaitingUnchoke
	Requesting
	Done
)

func (s state) String() string {
	switch s {
	case AwaitingBitfield:
		return "AwaitingBitfield"
	case Interesting:
		return "Interesting"
	case AwaitingUnchoke:
		return "AwaitingUnchoke"
	case Requesting:
		return "Requesting"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// progress tracks an in-flight piece transfer on one peer connection.
type progress struct {
	state state

	index      int
	buf        []byte
	conn       *peer.Conn
	downloaded int
	requested  int
	backlog    int
}

// fillBacklog issues as many Request messages as cfg allows while the
// peer is not choking us and there is more of the piece left to ask for.
func (p *progress) fillBacklog(cfg config.Config) error {
	for p.backlog < cfg.MaxBacklog && p.requested < len(p.buf) {
		size := config.BlockSize
		if remaining := len(p.buf) - p.requested; remaining < size {
			size = remaining
		}

		if err := p.conn.Request(p.index, p.requested, size); err != nil {
			return err
		}

		p.backlog++
		p.requested += size
	}
	return nil
}

// readMessage reads one frame from p's connection and applies its
// effect to p's progress or the connection's choke/bitfield state.
func (p *progress) readMessage(maxPayload int) error {
	msg, err := p.conn.Read(maxPayload)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil // keep-alive
	}

	switch msg.ID {
	case message.Choke:
		if p.state == Requesting {
			return ErrChokedDuringTransfer
		}
		p.conn.Choked = true
	case message.UnChoke:
		p.conn.Choked = false
	case message.Have:
		index, err := message.ParseHave(msg)
		if err != nil {
			return err
		}
		p.conn.Bitfield.Set(index)
	case message.Piece:
		n, err := message.ParsePiece(p.index, p.buf, msg)
		if err != nil {
			return err
		}
		p.downloaded += n
		p.backlog--
	}

	return nil
}

// downloadPiece drives p.conn through Interesting/AwaitingUnchoke/
// Requesting until the full piece has been downloaded, and returns it.
// It does not check the piece against want; DownloadPiece and worker
// verify the hash of what it returns.
func downloadPiece(conn *peer.Conn, index, length int, want [20]byte, cfg config.Config) ([]byte, error) {
	p := &progress{
		state: AwaitingBitfield,
		index: index,
		buf:   make([]byte, length),
		conn:  conn,
	}

	if err := conn.Interested(); err != nil {
		return nil, err
	}
	p.state = Interesting

	maxPayload := length + 8 // Piece payload is index+begin+block

	p.state = AwaitingUnchoke
	for p.downloaded < length {
		if !conn.Choked {
			p.state = Requesting
			if err := p.fillBacklog(cfg); err != nil {
				return nil, err
			}
		}

		if err := p.readMessage(maxPayload); err != nil {
			return nil, err
		}
	}
	p.state = Done

	return p.buf, nil
}

// verify reports whether block hashes to want.
func verify(want [20]byte, block []byte) bool {
	return sha1.Sum(block) == want
}
