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
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/internal/manager"
	"github.com/ravel-io/mtor/pkg/client"
	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/torrenterr"
)

// downloadCmd downloads every piece of a torrent and assembles them
// into the destination file.
func downloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <torrent-file>",
		Short: "download a torrent's content to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openTorrentFile(args[0])
			if err != nil {
				return err
			}

			cfg := config.Default()

			hash, err := f.InfoHash()
			if err != nil {
				return torrenterr.Wrap(torrenterr.Metainfo, err)
			}

			peers, err := announcePeers(cmd, f, hash, cfg)
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				return fmt.Errorf("command: tracker returned no peers")
			}

			m := manager.New("")
			if err := m.Init(); err != nil {
				return torrenterr.Wrap(torrenterr.IO, err)
			}
			defer m.Close()

			t := client.Torrent{File: f, PeerID: cfg.PeerID}
			if err := client.Download(t, peers, m, cfg, log.Logger); err != nil {
				return err
			}

			if output == "" {
				output = f.Info.Name
			}
			if err := assemble(m, f.PieceCount(), output); err != nil {
				return torrenterr.Wrap(torrenterr.IO, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s downloaded to %s.\n", args[0], output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file")
	return cmd
}

// assemble concatenates every piece stored in m into dst, in order.
func assemble(m client.PieceManager, pieceCount int, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	for i := 0; i < pieceCount; i++ {
		block, err := m.Get(i)
		if err != nil {
			return fmt.Errorf("reading piece %d: %w", i, err)
		}
		if _, err := out.Write(block); err != nil {
			return err
		}
	}

	return nil
}
