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

// Package command implements mtor's cobra command tree.
package command

import (
	"github.com/spf13/cobra"
)

// Root builds mtor's root command and its subcommands.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "mtor",
		Short:         "mtor is a minimal BitTorrent client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		decodeCmd(),
		infoCmd(),
		peersCmd(),
		handshakeCmd(),
		downloadPieceCmd(),
		downloadCmd(),
	)

	return root
}
