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

	"github.com/pnxs/docker-registry-go/pkg/manifest"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote"
)

func init() { Root.AddCommand(NewCmdManifest()) }

// NewCmdManifest creates a new cobra.Command for the manifest subcommand.
func NewCmdManifest() *cobra.Command {
	var showLabels bool
	cmd := &cobra.Command{
		Use:   "manifest IMAGE",
		Short: "Fetch a manifest and print its kind, architectures and layer digests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			ref, err := parseReference(args[0])
			if err != nil {
				return fmt.Errorf("parsing reference %q: %w", args[0], err)
			}

			opts := remoteOptions(cc.Context())
			desc, err := remote.GetWithContext(cc.Context(), ref, opts...)
			if err != nil {
				return fmt.Errorf("fetching manifest for %s: %w", ref, err)
			}

			m, err := manifest.Parse(desc.Manifest, desc.MediaType)
			if err != nil {
				return fmt.Errorf("parsing manifest for %s: %w", ref, err)
			}

			if m.Kind() == manifest.KindSchema2 || m.Kind() == manifest.KindOCIImage {
				img, err := desc.Image()
				if err != nil {
					return fmt.Errorf("resolving image for %s: %w", ref, err)
				}
				cfg, err := img.ConfigFile()
				if err != nil {
					return fmt.Errorf("fetching config for %s: %w", ref, err)
				}
				m = m.WithConfig(cfg)
			}

			fmt.Printf("kind:       %s\n", m.Kind())
			fmt.Printf("digest:     %s\n", m.Digest())

			archs, err := m.Architectures()
			if err != nil {
				return fmt.Errorf("reading architectures for %s: %w", ref, err)
			}
			fmt.Printf("arch:       %v\n", archs)

			digests, err := m.LayersDigests(archFilter())
			if err != nil {
				return fmt.Errorf("reading layers for %s: %w", ref, err)
			}
			fmt.Println("layers:")
			for _, d := range digests {
				fmt.Printf("  %s\n", d)
			}

			if showLabels {
				labels, err := m.Labels(0)
				if err != nil {
					return fmt.Errorf("reading labels for %s: %w", ref, err)
				}
				fmt.Println("labels:")
				for k, v := range labels {
					fmt.Printf("  %s=%s\n", k, v)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showLabels, "labels", false, "also print the config's labels")
	return cmd
}
