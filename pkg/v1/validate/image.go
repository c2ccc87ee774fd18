// Copyright 2019 Google LLC All Rights Reserved.
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

package validate

import (
	"bytes"
	"fmt"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
)

// Image validates that img does not violate any invariants of the image
// format, checking that its config and every layer are consistent with
// the manifest that describes them.
func Image(img v1.Image) error {
	if err := validateManifestDigest(img); err != nil {
		return err
	}

	cf, err := img.ConfigFile()
	if err != nil {
		return err
	}

	m, err := img.Manifest()
	if err != nil {
		return err
	}

	configName, err := img.ConfigName()
	if err != nil {
		return err
	}
	if configName != m.Config.Digest {
		return fmt.Errorf("mismatched config digest: Manifest.Config.Digest = %v, ConfigName() = %v", m.Config.Digest, configName)
	}

	raw, err := img.RawConfigFile()
	if err != nil {
		return err
	}
	hash, size, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if hash != configName {
		return fmt.Errorf("mismatched config digest: RawConfigFile() hashes to %v, ConfigName() = %v", hash, configName)
	}
	if size != m.Config.Size {
		return fmt.Errorf("mismatched config size: RawConfigFile() is %d bytes, Manifest.Config.Size = %d", size, m.Config.Size)
	}

	if got, want := len(cf.RootFS.DiffIDs), len(m.Layers); got != want {
		return fmt.Errorf("mismatched layer count: len(ConfigFile.RootFS.DiffIDs) = %d, len(Manifest.Layers) = %d", got, want)
	}

	layers, err := img.Layers()
	if err != nil {
		return err
	}
	if got, want := len(layers), len(m.Layers); got != want {
		return fmt.Errorf("mismatched layer count: len(Layers()) = %d, len(Manifest.Layers) = %d", got, want)
	}

	for i, l := range layers {
		if err := Layer(l); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}

		digest, err := l.Digest()
		if err != nil {
			return err
		}
		if digest != m.Layers[i].Digest {
			return fmt.Errorf("mismatched layer digest at index %d: Layer.Digest() = %v, Manifest.Layers[%d].Digest = %v", i, digest, i, m.Layers[i].Digest)
		}

		diffID, err := l.DiffID()
		if err != nil {
			return err
		}
		if diffID != cf.RootFS.DiffIDs[i] {
			return fmt.Errorf("mismatched diff ID at index %d: Layer.DiffID() = %v, ConfigFile.RootFS.DiffIDs[%d] = %v", i, diffID, i, cf.RootFS.DiffIDs[i])
		}
	}

	return nil
}

func validateManifestDigest(img v1.Image) error {
	raw, err := img.RawManifest()
	if err != nil {
		return err
	}
	hash, size, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	digest, err := img.Digest()
	if err != nil {
		return err
	}
	if hash != digest {
		return fmt.Errorf("mismatched manifest digest: RawManifest() hashes to %v, Digest() = %v", hash, digest)
	}

	wantSize, err := img.Size()
	if err != nil {
		return err
	}
	if size != wantSize {
		return fmt.Errorf("mismatched manifest size: RawManifest() is %d bytes, Size() = %d", size, wantSize)
	}
	return nil
}
