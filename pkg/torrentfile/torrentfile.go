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

// Package torrentfile parses .torrent metainfo files and computes the
// values derived from them: the info hash and the per-piece hash
// list.
package torrentfile

import (
	"crypto/sha1"
	"fmt"
	"io"

	"github.com/ravel-io/mtor/pkg/bencode"
)

// File represents a parsed .torrent metainfo file.
type File struct {
	Info     Info   `bencode:"info"`
	Announce string `bencode:"announce"`

	AnnounceList [][]string `bencode:"announce-list,omitempty"`
	Date         int64      `bencode:"creation date,omitempty"`
	Comment      string     `bencode:"comment,omitempty"`
	Author       string     `bencode:"created by,omitempty"`
}

// Info represents the info dictionary of a metainfo file. Length and
// Files are mutually exclusive: a single-file torrent sets Length and
// omits Files, a multi-file torrent does the reverse. The omitempty
// tags keep whichever is unused out of the encoded info dict, so its
// bencoding - and therefore its SHA-1 - matches what the torrent was
// originally published with.
type Info struct {
	PieceLen int    `bencode:"piece length"`
	Pieces   string `bencode:"pieces"`
	Name     string `bencode:"name"`

	Length int    `bencode:"length,omitempty"`
	Files  []Sub  `bencode:"files,omitempty"`
}

// Sub is one file of a multi-file torrent.
type Sub struct {
	Length int      `bencode:"length"`
	Path   []string `bencode:"path"`
}

// Parse parses a .torrent metainfo file from r.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var f File
	if err := bencode.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if len(f.Info.Pieces)%20 != 0 {
		return nil, fmt.Errorf("torrentfile: malformed piece hash string of length %d", len(f.Info.Pieces))
	}

	return &f, nil
}

// InfoHash returns the SHA-1 hash of the canonical bencoding of the
// info dictionary.
func (f *File) InfoHash() ([20]byte, error) {
	encoded, err := bencode.Marshal(f.Info)
	if err != nil {
		return [20]byte{}, err
	}
	return sha1.Sum([]byte(encoded)), nil
}

// PieceCount returns the number of pieces the torrent is split into.
func (f *File) PieceCount() int {
	return len(f.Info.Pieces) / 20
}

// PieceHash returns the expected SHA-1 hash of the ith piece.
func (f *File) PieceHash(i int) [20]byte {
	var hash [20]byte
	copy(hash[:], f.Info.Pieces[i*20:(i+1)*20])
	return hash
}

// PieceHashes returns the expected SHA-1 hash of every piece, in order.
func (f *File) PieceHashes() [][20]byte {
	n := f.PieceCount()
	hashes := make([][20]byte, n)
	for i := 0; i < n; i++ {
		hashes[i] = f.PieceHash(i)
	}
	return hashes
}

// TotalLength returns the total length in bytes of the torrent's content.
func (f *File) TotalLength() int {
	if f.IsSingleFile() {
		return f.Info.Length
	}

	total := 0
	for _, sub := range f.Info.Files {
		total += sub.Length
	}
	return total
}

// PieceLength returns the length in bytes of the ith piece: PieceLen
// for every piece but the last, which is whatever remains.
func (f *File) PieceLength(i int) int {
	begin := i * f.Info.PieceLen
	end := begin + f.Info.PieceLen
	if total := f.TotalLength(); end > total {
		return total - begin
	}
	return f.Info.PieceLen
}

// IsSingleFile reports whether f describes a single-file torrent.
func (f *File) IsSingleFile() bool {
	return len(f.Info.Files) == 0
}
