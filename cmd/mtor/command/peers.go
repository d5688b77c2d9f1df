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

	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/torrenterr"
)

// peersCmd announces to a torrent's tracker and prints the peer list
// it returns.
func peersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers <torrent-file>",
		Short: "fetch and print the peer list from a torrent's tracker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openTorrentFile(args[0])
			if err != nil {
				return err
			}

			hash, err := f.InfoHash()
			if err != nil {
				return torrenterr.Wrap(torrenterr.Metainfo, err)
			}

			peers, err := announcePeers(cmd, f, hash, config.Default())
			if err != nil {
				return err
			}

			for _, p := range peers {
				fmt.Fprintln(cmd.OutOrStdout(), p.String())
			}

			return nil
		},
	}
}
