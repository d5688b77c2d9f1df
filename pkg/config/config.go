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

// Package config collects the tunables of a torrent download into a
// single value, in place of the package-level vars the rest of the
// client used to scatter them across (MaxBacklog, MaxBlockSize,
// MaxPeers).
package config

import "time"

// BlockSize is the maximum size in bytes of a single requested block,
// per BEP 3 convention.
const BlockSize = 16 * 1024

// DefaultPort is the port the client advertises to trackers when it is
// not actually listening for incoming connections.
const DefaultPort = 6881

// DefaultPeerID is the client's fixed 20-byte peer identity.
const DefaultPeerID = "00112233445566778899"

// Config holds every tunable of a download.
type Config struct {
	PeerID [20]byte // client identity advertised to trackers and peers
	Port   uint16   // listening port advertised to the tracker

	MaxBacklog int // outstanding block requests per peer connection
	MaxPeers   int // peers requested from the tracker

	ConnectTimeout   time.Duration // TCP connect
	HandshakeTimeout time.Duration // handshake read/write combined
	FrameTimeout     time.Duration // a single frame read
	TrackerTimeout   time.Duration // tracker HTTP round trip
}

// Default returns the recommended Config: a fixed peer id and port, and
// conservative timeouts for every network suspension point.
func Default() Config {
	var id [20]byte
	copy(id[:], DefaultPeerID)

	return Config{
		PeerID: id,
		Port:   DefaultPort,

		MaxBacklog: 5,
		MaxPeers:   50,

		ConnectTimeout:   10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		FrameTimeout:     30 * time.Second,
		TrackerTimeout:   15 * time.Second,
	}
}
