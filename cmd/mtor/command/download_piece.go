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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/pkg/client"
	"github.com/ravel-io/mtor/pkg/config"
	"github.com/ravel-io/mtor/pkg/torrenterr"
)

// downloadPieceCmd downloads a single piece of a torrent from the
// first peer that reports having it, and writes it to an output file.
func downloadPieceCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download_piece <torrent-file> <piece-index>",
		Short: "download a single piece and write it to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openTorrentFile(args[0])
			if err != nil {
				return err
			}

			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("command: invalid piece index %q", args[1])
			}
			if index < 0 || index >= f.PieceCount() {
				return fmt.Errorf("command: piece index %d out of range [0, %d)", index, f.PieceCount())
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

			t := client.Torrent{File: f, PeerID: cfg.PeerID}

			var lastErr error
			for _, p := range peers {
				block, err := client.DownloadPiece(t, p, index, cfg)
				if err != nil {
					lastErr = err
					continue
				}

				if output == "" {
					output = fmt.Sprintf("piece-%d", index)
				}
				if err := os.WriteFile(output, block, 0644); err != nil {
					return torrenterr.Wrap(torrenterr.IO, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Piece %d downloaded to %s.\n", index, output)
				return nil
			}

			return fmt.Errorf("command: no peer served piece %d: %w", index, lastErr)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the piece to")
	return cmd
}
