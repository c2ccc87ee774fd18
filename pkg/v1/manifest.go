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

import (
	"encoding/json"
	"io"

	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// Manifest represents the OCI/Docker schema 2 image manifest: a config
// blob descriptor plus an ordered list of layer descriptors.
type Manifest struct {
	SchemaVersion int64             `json:"schemaVersion"`
	MediaType     types.MediaType   `json:"mediaType,omitempty"`
	Config        Descriptor        `json:"config"`
	Layers        []Descriptor      `json:"layers"`
	Annotations   map[string]string `json:"annotations,omitempty"`

	// ArtifactType identifies the type of an artifact when the manifest
	// is used to store something other than a container image.
	ArtifactType string `json:"artifactType,omitempty"`

	// Subject, when set, marks this manifest as referring to another
	// manifest, per the OCI image-spec's "referrers" mechanism.
	Subject *Descriptor `json:"subject,omitempty"`
}

// IndexManifest represents the OCI/Docker manifest list: a set of
// manifests, one per platform (or, for referrers indexes, one per
// referring artifact).
type IndexManifest struct {
	SchemaVersion int64             `json:"schemaVersion"`
	MediaType     types.MediaType   `json:"mediaType,omitempty"`
	Manifests     []Descriptor      `json:"manifests"`
	Annotations   map[string]string `json:"annotations,omitempty"`

	// Subject, when set, marks this index as referring to another
	// manifest, per the OCI image-spec's "referrers" mechanism.
	Subject *Descriptor `json:"subject,omitempty"`
}

// ParseManifest parses the given reader as a JSON image manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m := Manifest{}
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseIndexManifest parses the given reader as a JSON manifest list or
// image index.
func ParseIndexManifest(r io.Reader) (*IndexManifest, error) {
	im := IndexManifest{}
	if err := json.NewDecoder(r).Decode(&im); err != nil {
		return nil, err
	}
	return &im, nil
}
