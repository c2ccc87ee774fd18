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

package mutate

import (
	"bytes"
	"encoding/json"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/match"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// IndexAddendum contains the index to add to an ImageIndex and the
// descriptor fields to overwrite for the child manifest it produces.
type IndexAddendum struct {
	Add Appendable
	v1.Descriptor
}

// Appendable is implemented by anything that can be added to an index as a
// child manifest: v1.Image, v1.ImageIndex, or v1.Layer.
type Appendable interface {
	MediaType() (types.MediaType, error)
	Digest() (v1.Hash, error)
	Size() (int64, error)
}

type index struct {
	base       v1.ImageIndex
	adds       []IndexAddendum
	removals   []match.Matcher
	mediaType  *types.MediaType
	manifest   *v1.IndexManifest
	subject    *v1.Descriptor
	computed   bool
	imageMap   map[v1.Hash]v1.Image
	indexMap   map[v1.Hash]v1.ImageIndex
}

func newIndex(base v1.ImageIndex) *index {
	return &index{
		base:     base,
		imageMap: map[v1.Hash]v1.Image{},
		indexMap: map[v1.Hash]v1.ImageIndex{},
	}
}

func (i *index) MediaType() (types.MediaType, error) {
	if i.mediaType != nil {
		return *i.mediaType, nil
	}
	return i.base.MediaType()
}

func (i *index) Digest() (v1.Hash, error) {
	b, err := i.RawManifest()
	if err != nil {
		return v1.Hash{}, err
	}
	h, _, err := v1.SHA256(bytes.NewReader(b))
	return h, err
}

func (i *index) Size() (int64, error) {
	b, err := i.RawManifest()
	if err != nil {
		return -1, err
	}
	return int64(len(b)), nil
}

func (i *index) compute() (*v1.IndexManifest, error) {
	if i.computed && i.manifest != nil {
		return i.manifest, nil
	}

	base, err := i.base.IndexManifest()
	if err != nil {
		return nil, err
	}
	m := *base
	m.Manifests = append([]v1.Descriptor{}, base.Manifests...)

	if len(i.removals) > 0 {
		kept := make([]v1.Descriptor, 0, len(m.Manifests))
		for _, desc := range m.Manifests {
			remove := false
			for _, matcher := range i.removals {
				if matcher(desc) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, desc)
			}
		}
		m.Manifests = kept
	}

	for _, add := range i.adds {
		mt, err := add.Add.MediaType()
		if err != nil {
			return nil, err
		}
		digest, err := add.Add.Digest()
		if err != nil {
			return nil, err
		}
		size, err := add.Add.Size()
		if err != nil {
			return nil, err
		}

		desc := v1.Descriptor{
			MediaType:    mt,
			Digest:       digest,
			Size:         size,
			URLs:         add.URLs,
			Annotations:  add.Annotations,
			Platform:     add.Platform,
			ArtifactType: add.ArtifactType,
		}
		if add.Descriptor.Digest != (v1.Hash{}) {
			desc.Digest = add.Descriptor.Digest
		}
		if add.Descriptor.Size != 0 {
			desc.Size = add.Descriptor.Size
		}
		if add.Descriptor.MediaType != "" {
			desc.MediaType = add.Descriptor.MediaType
		}

		switch im := add.Add.(type) {
		case v1.Image:
			i.imageMap[desc.Digest] = im
		case v1.ImageIndex:
			i.indexMap[desc.Digest] = im
		}

		m.Manifests = append(m.Manifests, desc)
	}

	if i.mediaType != nil {
		m.MediaType = *i.mediaType
	}
	if i.subject != nil {
		m.Subject = i.subject
	}

	i.manifest = &m
	i.computed = true
	return &m, nil
}

func (i *index) IndexManifest() (*v1.IndexManifest, error) {
	return i.compute()
}

func (i *index) RawManifest() ([]byte, error) {
	m, err := i.compute()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (i *index) Image(h v1.Hash) (v1.Image, error) {
	if img, ok := i.imageMap[h]; ok {
		return img, nil
	}
	return i.base.Image(h)
}

func (i *index) ImageIndex(h v1.Hash) (v1.ImageIndex, error) {
	if idx, ok := i.indexMap[h]; ok {
		return idx, nil
	}
	return i.base.ImageIndex(h)
}

// AppendManifests appends the given addendums to the index, producing a new
// v1.ImageIndex that includes them as direct children.
func AppendManifests(base v1.ImageIndex, adds ...IndexAddendum) v1.ImageIndex {
	var idx *index
	if existing, ok := base.(*index); ok {
		idx = &index{
			base:     existing.base,
			adds:     append(append([]IndexAddendum{}, existing.adds...), adds...),
			removals: existing.removals,
			mediaType: existing.mediaType,
			subject:  existing.subject,
			imageMap: map[v1.Hash]v1.Image{},
			indexMap: map[v1.Hash]v1.ImageIndex{},
		}
		for k, v := range existing.imageMap {
			idx.imageMap[k] = v
		}
		for k, v := range existing.indexMap {
			idx.indexMap[k] = v
		}
	} else {
		idx = newIndex(base)
		idx.adds = adds
	}
	return idx
}

// RemoveManifests removes any descriptors matching matcher from the index,
// producing a new v1.ImageIndex without them.
func RemoveManifests(base v1.ImageIndex, matcher match.Matcher) v1.ImageIndex {
	var idx *index
	if existing, ok := base.(*index); ok {
		idx = &index{
			base:      existing.base,
			adds:      existing.adds,
			removals:  append(append([]match.Matcher{}, existing.removals...), matcher),
			mediaType: existing.mediaType,
			subject:   existing.subject,
			imageMap:  existing.imageMap,
			indexMap:  existing.indexMap,
		}
	} else {
		idx = newIndex(base)
		idx.removals = []match.Matcher{matcher}
	}
	return idx
}

// IndexMediaType overrides the media type of the given index.
func IndexMediaType(base v1.ImageIndex, mt types.MediaType) v1.ImageIndex {
	idx := asIndex(base)
	idx.mediaType = &mt
	return idx
}

// Subject sets the subject of the given index, for use with the OCI
// referrers API and artifact-manifest style attachments.
func Subject(base v1.ImageIndex, subject v1.Descriptor) v1.ImageIndex {
	idx := asIndex(base)
	idx.subject = &subject
	return idx
}

func asIndex(base v1.ImageIndex) *index {
	if existing, ok := base.(*index); ok {
		clone := *existing
		return &clone
	}
	return newIndex(base)
}
