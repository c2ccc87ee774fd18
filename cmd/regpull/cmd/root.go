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
	"context"

	"github.com/spf13/cobra"

	"github.com/pnxs/docker-registry-go/pkg/authn"
	"github.com/pnxs/docker-registry-go/pkg/name"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote"
)

// Root is the regpull command tree; each subcommand registers itself
// onto it from an init in its own file.
var Root = &cobra.Command{
	Use:           "regpull",
	Short:         "Inspect and pull images from a container registry",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	insecure bool
	platform string
)

func init() {
	Root.PersistentFlags().BoolVar(&insecure, "insecure", false, "connect to the registry over plain HTTP")
	Root.PersistentFlags().StringVar(&platform, "platform", "", "architecture to select from a manifest list, e.g. arm64")
}

// parseReference parses s into a name.Reference, honoring --insecure.
func parseReference(s string) (name.Reference, error) {
	if insecure {
		return name.ParseReference(s, name.Insecure)
	}
	return name.ParseReference(s)
}

// remoteOptions builds the remote.Option set shared by every subcommand:
// the default keychain for auth and the invoking command's context for
// cancellation.
func remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
	}
	if platform != "" {
		opts = append(opts, remote.WithPlatform(v1.Platform{Architecture: platform, OS: "linux"}))
	}
	return opts
}

// archFilter returns the --platform flag as the *string Manifest.Layers
// and Manifest.LayersDigests expect, or nil if it wasn't set.
func archFilter() *string {
	if platform == "" {
		return nil
	}
	return &platform
}
