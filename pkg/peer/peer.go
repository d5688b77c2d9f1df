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
	"encoding/binary"
	"fmt"
	"net"
)

// CompactLen is the size in bytes of one peer entry in a tracker's
// compact peer list: a 4 byte IPv4 address followed by a 2 byte port,
// per BEP 23.
const CompactLen = 6

// Peer represents a torrent peer.
type Peer struct {
	IP   net.IP // ip of the peer
	Port uint16 // port of the peer
}

// String converts Peer to a string with the format ip:port.
func (p Peer) String() string {
	return fmt.Sprintf("%s:%v", p.IP, p.Port)
}

// Addr returns p as a *net.TCPAddr, suitable for net.DialTCP or
// comparing against a connection's RemoteAddr.
func (p Peer) Addr() *net.TCPAddr {
	return &net.TCPAddr{IP: p.IP, Port: int(p.Port)}
}

// Unmarshal decodes a tracker's compact peer list (a flat run of
// CompactLen-byte entries, as returned in a bencoded "peers" string)
// into Peer values.
func Unmarshal(buffer []byte) ([]Peer, error) {
	if len(buffer)%CompactLen != 0 {
		return nil, fmt.Errorf("peer: malformed compact peer list of length %d", len(buffer))
	}

	peers := make([]Peer, 0, len(buffer)/CompactLen)
	for len(buffer) > 0 {
		entry := buffer[:CompactLen]
		buffer = buffer[CompactLen:]

		peers = append(peers, Peer{
			IP:   net.IPv4(entry[0], entry[1], entry[2], entry[3]),
			Port: binary.BigEndian.Uint16(entry[4:6]),
		})
	}
	return peers, nil
}
