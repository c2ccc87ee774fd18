// Copyright 2024 Google LLC All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pnxs/docker-registry-go/pkg/v1/remote"
)

func init() { Root.AddCommand(NewCmdCheck()) }

// NewCmdCheck creates a new cobra.Command for the check subcommand.
func NewCmdCheck() *cobra.Command {
	return &cobra.Command{
		Use:   "check IMAGE",
		Short: "HEAD a reference and print its digest, media type and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			ref, err := parseReference(args[0])
			if err != nil {
				return fmt.Errorf("parsing reference %q: %w", args[0], err)
			}

			desc, err := remote.HeadWithContext(cc.Context(), ref, remoteOptions(cc.Context())...)
			if err != nil {
				return fmt.Errorf("checking %s: %w", ref, err)
			}

			fmt.Printf("digest:     %s\n", desc.Digest)
			fmt.Printf("mediaType:  %s\n", desc.MediaType)
			fmt.Printf("size:       %d\n", desc.Size)
			return nil
		},
	}
}
