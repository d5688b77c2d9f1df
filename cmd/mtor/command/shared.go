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
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/peer"
	"github.com/ravel-io/mtor/pkg/torrenterr"
	"github.com/ravel-io/mtor/pkg/torrentfile"
	"github.com/ravel-io/mtor/pkg/tracker"
)

// announcePeers announces to f's tracker and returns the peer list.
func announcePeers(cmd *cobra.Command, f *torrentfile.File, hash [20]byte, cfg config.Config) ([]peer.Peer, error) {
	client := &http.Client{Timeout: cfg.TrackerTimeout}

	res, err := tracker.Announce(cmd.Context(), client, tracker.Request{
		Announce: f.Announce,
		InfoHash: hash,
		PeerID:   cfg.PeerID,
		Port:     cfg.Port,
		Left:     int64(f.TotalLength()),
		NumWant:  cfg.MaxPeers,
	})
	if err != nil {
		return nil, torrenterr.Wrap(torrenterr.HTTP, err)
	}

	return res.Peers, nil
}
