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
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// Index validates that idx does not violate any invariants of the image
// index format, recursing into every child manifest or index.
func Index(idx v1.ImageIndex) error {
	raw, err := idx.RawManifest()
	if err != nil {
		return err
	}
	hash, size, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	digest, err := idx.Digest()
	if err != nil {
		return err
	}
	if hash != digest {
		return fmt.Errorf("mismatched index digest: RawManifest() hashes to %v, Digest() = %v", hash, digest)
	}

	wantSize, err := idx.Size()
	if err != nil {
		return err
	}
	if size != wantSize {
		return fmt.Errorf("mismatched index size: RawManifest() is %d bytes, Size() = %d", size, wantSize)
	}

	m, err := idx.IndexManifest()
	if err != nil {
		return err
	}

	for i, desc := range m.Manifests {
		switch desc.MediaType {
		case types.OCIImageIndex, types.DockerManifestList:
			child, err := idx.ImageIndex(desc.Digest)
			if err != nil {
				return fmt.Errorf("manifest %d: %w", i, err)
			}
			if err := Index(child); err != nil {
				return fmt.Errorf("manifest %d: %w", i, err)
			}
		case types.OCIManifestSchema1, types.DockerManifestSchema2:
			child, err := idx.Image(desc.Digest)
			if err != nil {
				return fmt.Errorf("manifest %d: %w", i, err)
			}
			if err := Image(child); err != nil {
				return fmt.Errorf("manifest %d: %w", i, err)
			}
		}
	}

	return nil
}
