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

// Package manifest provides a uniform view over the four manifest
// shapes a registry can hand back for a single reference: a signed
// Schema 1 manifest, a Schema 2 manifest, an OCI image manifest, and a
// manifest list / OCI index. Callers fetch the raw bytes and
// Content-Type themselves (see pkg/v1/remote) and Parse them into a
// Manifest, which then answers architectures(), layers() and labels()
// the same way regardless of which shape came back over the wire.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// Kind identifies which of the four manifest shapes a Manifest holds.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSchema1Signed is a (possibly unsigned) Docker Schema 1 manifest.
	KindSchema1Signed
	// KindSchema2 is a Docker Schema 2 manifest.
	KindSchema2
	// KindOCIImage is an OCI image manifest, handled identically to
	// KindSchema2 for layer/architecture/label extraction.
	KindOCIImage
	// KindManifestList is a Docker manifest list or OCI image index.
	KindManifestList
)

func (k Kind) String() string {
	switch k {
	case KindSchema1Signed:
		return "schema1"
	case KindSchema2:
		return "schema2"
	case KindOCIImage:
		return "oci-image"
	case KindManifestList:
		return "manifest-list"
	default:
		return "unknown"
	}
}

var (
	// ErrConfigBlobRequired is returned by Architectures and Labels for a
	// Schema2/OCI manifest that hasn't had its config blob attached via
	// WithConfig yet.
	ErrConfigBlobRequired = errors.New("manifest: config blob required; call WithConfig first")

	// ErrNoMatchingPlatform is returned by Layers/LayersDigests when a
	// manifest list contains no entry for the requested architecture.
	ErrNoMatchingPlatform = errors.New("manifest: no entry matches the requested architecture")

	// ErrUnsupportedMediaType is returned by Parse for a Content-Type
	// this package does not know how to dispatch.
	ErrUnsupportedMediaType = errors.New("manifest: unsupported media type")
)

// LayerRef is one entry of the ordered sequence Layers returns: enough
// to either fetch the blob directly (Schema2/OCI/Schema1) or descend
// into a child manifest (manifest list).
type LayerRef struct {
	Digest    v1.Hash
	MediaType types.MediaType
}

// Manifest is a parsed, tagged-union view of one of the four manifest
// shapes. The zero value is not useful; construct one with Parse.
type Manifest struct {
	kind      Kind
	mediaType types.MediaType
	digest    v1.Hash
	raw       []byte

	s1     *schema1Manifest
	s2     *v1.Manifest
	config *v1.ConfigFile
	list   *v1.IndexManifest
}

// Parse dispatches on mediaType and unmarshals raw into the
// appropriate shape. The returned Manifest's Digest is the digest of
// raw itself, independent of any Docker-Content-Digest header the
// caller may also have seen - a manifest's canonical identity is the
// hash of the exact bytes it was parsed from.
func Parse(raw []byte, mediaType types.MediaType) (*Manifest, error) {
	digest, _, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		mediaType: mediaType,
		digest:    digest,
		raw:       raw,
	}

	switch {
	case mediaType.IsSchema1():
		s1 := &schema1Manifest{}
		if err := json.Unmarshal(raw, s1); err != nil {
			return nil, fmt.Errorf("manifest: parsing schema1: %w", err)
		}
		m.kind = KindSchema1Signed
		m.s1 = s1

	case mediaType.IsIndex():
		list, err := v1.ParseIndexManifest(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("manifest: parsing manifest list: %w", err)
		}
		m.kind = KindManifestList
		m.list = list

	case mediaType == types.OCIManifestSchema1:
		s2, err := v1.ParseManifest(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("manifest: parsing OCI image manifest: %w", err)
		}
		m.kind = KindOCIImage
		m.s2 = s2

	case mediaType == types.DockerManifestSchema2:
		s2, err := v1.ParseManifest(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("manifest: parsing schema2: %w", err)
		}
		m.kind = KindSchema2
		m.s2 = s2

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}

	return m, nil
}

// Kind reports which of the four manifest shapes this Manifest holds.
func (m *Manifest) Kind() Kind { return m.kind }

// MediaType is the Content-Type the manifest was fetched with.
func (m *Manifest) MediaType() types.MediaType { return m.mediaType }

// Digest is the digest of the exact bytes Parse was given.
func (m *Manifest) Digest() v1.Hash { return m.digest }

// Raw returns the exact bytes this Manifest was parsed from.
func (m *Manifest) Raw() []byte { return m.raw }

// WithConfig returns a copy of m with the Schema2/OCI config blob
// attached, required before Architectures or Labels will succeed for
// those two kinds. It is a no-op (other than the copy) for S1 and
// manifest-list manifests, which never need a config blob.
func (m *Manifest) WithConfig(cfg *v1.ConfigFile) *Manifest {
	cp := *m
	cp.config = cfg
	return &cp
}

// Config returns the config blob previously attached with WithConfig,
// or nil if none has been attached.
func (m *Manifest) Config() *v1.ConfigFile { return m.config }

// Architectures returns the set of architectures this manifest covers:
// the single value from the manifest itself for S1, the single value
// from the config blob for S2/OCI, or the union of
// per-entry platform.architecture, in wire order, for a manifest list.
func (m *Manifest) Architectures() ([]string, error) {
	switch m.kind {
	case KindSchema1Signed:
		return []string{m.s1.Architecture}, nil

	case KindSchema2, KindOCIImage:
		if m.config == nil {
			return nil, ErrConfigBlobRequired
		}
		return []string{m.config.Architecture}, nil

	case KindManifestList:
		var archs []string
		for _, d := range m.list.Manifests {
			if d.Platform == nil || d.Platform.Architecture == "" {
				continue
			}
			archs = append(archs, d.Platform.Architecture)
		}
		return archs, nil

	default:
		return nil, fmt.Errorf("manifest: architectures() on %s manifest", m.kind)
	}
}

// Layers returns the ordered sequence of (digest, media type) pairs
// this manifest describes.
//
// For S1, fsLayers are reversed from the wire's top-first order to
// base-first, matching how every other kind is already ordered. For
// S2/OCI, archFilter is ignored; the manifest already describes one
// platform. For a manifest list, archFilter is required and selects
// the first entry whose platform.architecture matches it - the single
// resulting (digest, media type) pair identifies the child manifest to
// fetch and Parse next, not a fully resolved layer list.
func (m *Manifest) Layers(archFilter *string) ([]LayerRef, error) {
	switch m.kind {
	case KindSchema1Signed:
		layers := make([]LayerRef, len(m.s1.FSLayers))
		for i, fs := range m.s1.FSLayers {
			h, err := v1.NewHash(fs.BlobSum)
			if err != nil {
				return nil, fmt.Errorf("manifest: parsing fsLayers[%d].blobSum: %w", i, err)
			}
			// fsLayers is top-first on the wire; expose base-first.
			layers[len(layers)-1-i] = LayerRef{Digest: h, MediaType: types.DockerLayer}
		}
		return layers, nil

	case KindSchema2, KindOCIImage:
		layers := make([]LayerRef, len(m.s2.Layers))
		for i, d := range m.s2.Layers {
			layers[i] = LayerRef{Digest: d.Digest, MediaType: d.MediaType}
		}
		return layers, nil

	case KindManifestList:
		if archFilter == nil {
			return nil, errors.New("manifest: layers() on a manifest list requires an architecture filter")
		}
		for _, d := range m.list.Manifests {
			if d.Platform != nil && d.Platform.Architecture == *archFilter {
				return []LayerRef{{Digest: d.Digest, MediaType: d.MediaType}}, nil
			}
		}
		return nil, ErrNoMatchingPlatform

	default:
		return nil, fmt.Errorf("manifest: layers() on %s manifest", m.kind)
	}
}

// LayersDigests is Layers, returning only the digest of each entry.
func (m *Manifest) LayersDigests(archFilter *string) ([]string, error) {
	layers, err := m.Layers(archFilter)
	if err != nil {
		return nil, err
	}
	digests := make([]string, len(layers))
	for i, l := range layers {
		digests[i] = l.Digest.String()
	}
	return digests, nil
}

// Labels returns the container config's label map.
//
// For S1, index selects a history entry (in wire, top-first order) and
// labels are parsed out of that entry's embedded v1Compatibility
// config. For S2/OCI, index is ignored and labels come from the
// attached config blob, which must be present. A manifest with no
// labels returns (nil, nil); a manifest kind with no label concept
// (manifest lists) errors.
func (m *Manifest) Labels(index int) (map[string]string, error) {
	switch m.kind {
	case KindSchema1Signed:
		if index < 0 || index >= len(m.s1.History) {
			return nil, fmt.Errorf("manifest: history index %d out of range [0,%d)", index, len(m.s1.History))
		}
		var embedded v1CompatibilityConfig
		if err := json.Unmarshal([]byte(m.s1.History[index].V1Compatibility), &embedded); err != nil {
			return nil, fmt.Errorf("manifest: parsing embedded v1Compatibility config: %w", err)
		}
		if len(embedded.Config.Labels) == 0 {
			return nil, nil
		}
		return embedded.Config.Labels, nil

	case KindSchema2, KindOCIImage:
		if m.config == nil {
			return nil, ErrConfigBlobRequired
		}
		if len(m.config.Config.Labels) == 0 {
			return nil, nil
		}
		return m.config.Config.Labels, nil

	default:
		return nil, fmt.Errorf("manifest: labels() on %s manifest", m.kind)
	}
}
