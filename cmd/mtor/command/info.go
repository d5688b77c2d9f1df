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

	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/pkg/torrentfile"
	"github.com/ravel-io/mtor/pkg/torrenterr"
)

// infoCmd prints a metainfo file's tracker URL, length, info hash and
// piece hashes.
func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <torrent-file>",
		Short: "print the metadata of a .torrent file",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tracker URL: %s\n", f.Announce)
			fmt.Fprintf(out, "Length: %d\n", f.TotalLength())
			fmt.Fprintf(out, "Info Hash: %x\n", hash)
			fmt.Fprintf(out, "Piece Length: %d\n", f.Info.PieceLen)
			fmt.Fprintln(out, "Piece Hashes:")
			for _, h := range f.PieceHashes() {
				fmt.Fprintf(out, "%x\n", h)
			}

			return nil
		},
	}
}

// openTorrentFile opens and parses a .torrent metainfo file at path.
func openTorrentFile(path string) (*torrentfile.File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, torrenterr.Wrap(torrenterr.IO, err)
	}
	defer r.Close()

	f, err := torrentfile.Parse(r)
	if err != nil {
		return nil, torrenterr.Wrap(torrenterr.Metainfo, err)
	}
	return f, nil
}
