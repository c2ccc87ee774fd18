// Copyright 2018 Google LLC All Rights Reserved.
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

package v1

import "github.com/pnxs/docker-registry-go/pkg/v1/types"

// Descriptor describes a blob or manifest referenced from a manifest or
// index, mirroring the OCI content descriptor object.
type Descriptor struct {
	MediaType types.MediaType `json:"mediaType,omitempty"`
	Size      int64           `json:"size"`
	Digest    Hash            `json:"digest"`

	// Platform restricts this descriptor's applicability to a single
	// platform when present in a DockerManifestList/OCIImageIndex entry.
	Platform *Platform `json:"platform,omitempty"`

	// URLs holds alternate download locations for foreign layers.
	URLs []string `json:"urls,omitempty"`

	// Annotations carries arbitrary OCI annotations attached to the
	// entry, per the OCI image-spec descriptor object.
	Annotations map[string]string `json:"annotations,omitempty"`

	// ArtifactType is set when the descriptor's manifest advertises an
	// OCI artifactType distinct from its config media type.
	ArtifactType string `json:"artifactType,omitempty"`

	// Data holds the descriptor's content inline, when already fetched
	// or small enough to embed, for use with verify.Descriptor.
	Data []byte `json:"data,omitempty"`
}

// SizeUnknown is used in Descriptor.Size to indicate that the real size
// is not yet known, e.g. while resuming a partially fetched blob.
const SizeUnknown = -1
