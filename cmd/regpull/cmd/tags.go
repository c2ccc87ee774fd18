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

	"github.com/pnxs/docker-registry-go/pkg/name"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote"
)

func init() { Root.AddCommand(NewCmdTags()) }

// NewCmdTags creates a new cobra.Command for the tags subcommand.
func NewCmdTags() *cobra.Command {
	return &cobra.Command{
		Use:   "tags REPO",
		Short: "List the tags in a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			var repo name.Repository
			var err error
			if insecure {
				repo, err = name.NewRepository(args[0], name.Insecure)
			} else {
				repo, err = name.NewRepository(args[0])
			}
			if err != nil {
				return fmt.Errorf("parsing repository %q: %w", args[0], err)
			}

			it, err := remote.NewTagIterator(cc.Context(), repo, remoteOptions(cc.Context())...)
			if err != nil {
				return fmt.Errorf("listing tags for %s: %w", repo, err)
			}

			for {
				tag, ok, err := it.Next(cc.Context())
				if err != nil {
					return fmt.Errorf("listing tags for %s: %w", repo, err)
				}
				if !ok {
					return nil
				}
				fmt.Println(tag)
			}
		},
	}
}
