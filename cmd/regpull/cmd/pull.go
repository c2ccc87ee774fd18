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
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pnxs/docker-registry-go/pkg/render"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote"
)

func init() { Root.AddCommand(NewCmdPull()) }

// NewCmdPull creates a new cobra.Command for the pull subcommand.
func NewCmdPull() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull IMAGE DIR",
		Short: "Pull an image's layers and unpack them onto an existing directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cc *cobra.Command, args []string) error {
			ref, err := parseReference(args[0])
			if err != nil {
				return fmt.Errorf("parsing reference %q: %w", args[0], err)
			}
			dir, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolving %s: %w", args[1], err)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("%s is not an existing directory", dir)
			}

			img, err := remote.ImageWithContext(cc.Context(), ref, remoteOptions(cc.Context())...)
			if err != nil {
				return fmt.Errorf("resolving image for %s: %w", ref, err)
			}

			layers, err := img.Layers()
			if err != nil {
				return fmt.Errorf("reading layers for %s: %w", ref, err)
			}

			blobs := make([]render.LayerBlob, len(layers))
			for i, l := range layers {
				mt, err := l.MediaType()
				if err != nil {
					return fmt.Errorf("reading media type of layer %d: %w", i, err)
				}
				rc, err := l.Compressed()
				if err != nil {
					return fmt.Errorf("opening layer %d: %w", i, err)
				}
				b, err := io.ReadAll(rc)
				rc.Close()
				if err != nil {
					return fmt.Errorf("reading layer %d: %w", i, err)
				}
				blobs[i] = render.LayerBlob{Bytes: b, MediaType: mt}
			}

			if err := render.UnpackLayers(blobs, dir); err != nil {
				return fmt.Errorf("unpacking %s into %s: %w", ref, dir, err)
			}

			fmt.Printf("unpacked %d layers into %s\n", len(blobs), dir)
			return nil
		},
	}
	return cmd
}
