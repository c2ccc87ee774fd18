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

package manifest

// schema1Manifest is the deprecated Docker Image Manifest v2, Schema 1
// wire shape. Schema 1 is parse-only here: no signature verification
// is performed, and none of its fields are exposed beyond what
// Architectures/Layers/Labels need.
type schema1Manifest struct {
	Name         string        `json:"name"`
	Tag          string        `json:"tag"`
	Architecture string        `json:"architecture"`
	FSLayers     []fsLayer     `json:"fsLayers"`
	History      []history     `json:"history"`
}

// fsLayer is a single filesystem layer digest, listed top-first.
type fsLayer struct {
	BlobSum string `json:"blobSum"`
}

// history pairs positionally with fsLayers and carries an opaque,
// Schema1-specific container config as a JSON string.
type history struct {
	V1Compatibility string `json:"v1Compatibility"`
}

// v1CompatibilityConfig is the subset of a history entry's embedded
// v1Compatibility JSON string this package cares about.
type v1CompatibilityConfig struct {
	Config struct {
		Labels map[string]string `json:"Labels,omitempty"`
	} `json:"config"`
}
