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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ravel-io/mtor/pkg/bencode"
	"github.com/ravel-io/mtor/pkg/torrenterr"
)

// decodeCmd decodes a single bencoded value from its argument and
// prints its JSON projection, for inspecting raw bencode on the
// command line.
func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <bencoded-value>",
		Short: "decode a bencoded value and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bencode.DecodeAll([]byte(args[0]))
			if err != nil {
				return torrenterr.Wrap(torrenterr.Bencode, err)
			}

			out, err := json.Marshal(v.JSON())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
