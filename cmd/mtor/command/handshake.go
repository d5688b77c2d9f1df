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

package command

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/peer"
	"github.com/ravel-io/mtor/pkg/torrenterr"
)

// handshakeCmd completes a peer wire handshake with a single peer and
// prints the peer id it replied with.
func handshakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handshake <torrent-file> <peer-address>",
		Short: "handshake with a single peer and print its peer id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openTorrentFile(args[0])
			if err != nil {
				return err
			}

			hash, err := f.InfoHash()
			if err != nil {
				return torrenterr.Wrap(torrenterr.Metainfo, err)
			}

			p, err := parsePeerAddr(args[1])
			if err != nil {
				return torrenterr.Wrap(torrenterr.Protocol, err)
			}

			cfg := config.Default()
			conn, err := peer.Handshake(p, hash, cfg.PeerID, cfg)
			if err != nil {
				return torrenterr.Wrap(torrenterr.Network, err)
			}
			defer conn.Conn.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Peer ID: %x\n", conn.Name)
			return nil
		},
	}
}

// parsePeerAddr parses a "host:port" peer address.
func parsePeerAddr(addr string) (peer.Peer, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return peer.Peer{}, err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return peer.Peer{}, fmt.Errorf("command: could not resolve peer host %q", host)
		}
		ip = ips[0]
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return peer.Peer{}, err
	}

	return peer.Peer{IP: ip, Port: uint16(port)}, nil
}
