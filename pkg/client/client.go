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

// Package client drives the single-piece and whole-torrent download
// engines: one goroutine per peer connection pulling work off a shared
// channel, with no state shared between piece transfers beyond that
// channel and the results it feeds back.
package client

import (
	"crypto/sha1"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/peer"
	"github.com/ravel-io/mtor/pkg/torrentfile"
)

// PieceManager stores the pieces of a torrent as they are downloaded.
type PieceManager interface {
	Init() error
	Put(index int, data []byte) error
	Get(index int) ([]byte, error)
	Close() error
}

// Torrent is a parsed metainfo file together with the session identity
// used to announce to its tracker and handshake with its peers.
type Torrent struct {
	File   *torrentfile.File
	PeerID [20]byte
}

// DownloadPiece connects to p, completes the handshake, and downloads
// a single piece, verifying its hash before returning it. The
// single-piece CLI command uses it; the whole-torrent downloader's
// workers call downloadPiece over their own connections instead.
func DownloadPiece(t Torrent, p peer.Peer, index int, cfg config.Config) ([]byte, error) {
	conn, err := peer.NewConn(p, mustHash(t.File), t.PeerID, cfg)
	if err != nil {
		return nil, fmt.Errorf("client: connecting to %s: %w", p, err)
	}
	defer conn.Conn.Close()

	if !conn.Bitfield.Has(index) {
		return nil, fmt.Errorf("client: peer %s does not have piece %d", p, index)
	}

	length := t.File.PieceLength(index)
	want := t.File.PieceHash(index)

	block, err := downloadPiece(conn, index, length, want, cfg)
	if err != nil {
		return nil, err
	}

	if !verify(want, block) {
		return nil, fmt.Errorf("client: piece %d failed hash verification", index)
	}

	return block, nil
}

func mustHash(f *torrentfile.File) [20]byte {
	hash, err := f.InfoHash()
	if err != nil {
		// Parse already validated the info dict, InfoHash cannot fail
		// on a value it successfully produced.
		panic(err)
	}
	return hash
}

// Download fetches every piece of t from peers and stores each one
// into manager, using one goroutine per peer connection. Peers that
// fail to connect or that misbehave are dropped; their outstanding
// work is returned to the queue for another peer to pick up.
func Download(t Torrent, peers []peer.Peer, manager PieceManager, cfg config.Config, log zerolog.Logger) error {
	hash := mustHash(t.File)
	pieceCount := t.File.PieceCount()

	work := make(chan *piece, pieceCount)
	results := make(chan *pieceResult)

	for index := 0; index < pieceCount; index++ {
		work <- &piece{
			index:  index,
			hash:   t.File.PieceHash(index),
			length: t.File.PieceLength(index),
		}
	}

	for _, p := range peers {
		go worker(t, hash, p, work, results, cfg, log)
	}

	for done := 0; done < pieceCount; done++ {
		res := <-results
		if err := manager.Put(res.index, res.value); err != nil {
			return fmt.Errorf("client: storing piece %d: %w", res.index, err)
		}
		log.Info().Int("piece", res.index).Int("done", done+1).Int("total", pieceCount).Msg("piece downloaded")
	}
	close(work)

	return nil
}

// worker connects to one peer and keeps pulling pieces off work until
// it is exhausted or the connection breaks.
func worker(t Torrent, hash [20]byte, p peer.Peer, work chan *piece, results chan *pieceResult, cfg config.Config, log zerolog.Logger) {
	conn, err := peer.NewConn(p, hash, t.PeerID, cfg)
	if err != nil {
		log.Debug().Stringer("peer", p).Err(err).Msg("peer connection failed")
		return
	}
	defer conn.Conn.Close()

	conn.UnChoke()
	conn.Interested()

	log.Info().Stringer("peer", p).Msg("connected to peer")

	for pc := range work {
		if !conn.Bitfield.Has(pc.index) {
			work <- pc
			continue
		}

		block, err := downloadPiece(conn, pc.index, pc.length, pc.hash, cfg)
		if err != nil {
			work <- pc
			return
		}

		if sha1.Sum(block) != pc.hash {
			work <- pc
			continue
		}

		results <- &pieceResult{index: pc.index, value: block}
	}
}
