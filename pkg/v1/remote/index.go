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

package remote

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pnxs/docker-registry-go/pkg/name"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/partial"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// remoteIndex accesses a manifest list or image index from a remote
// registry, implementing v1.ImageIndex.
type remoteIndex struct {
	fetcher
	ctx        context.Context
	ref        name.Reference
	manifest   []byte
	mediaType  types.MediaType
	descriptor *v1.Descriptor
}

// Index reads ref from the registry, returning a v1.ImageIndex.
func Index(ref name.Reference, options ...Option) (v1.ImageIndex, error) {
	return IndexWithContext(context.Background(), ref, options...)
}

// IndexWithContext is like Index, but the requests it issues honor ctx.
func IndexWithContext(ctx context.Context, ref name.Reference, options ...Option) (v1.ImageIndex, error) {
	desc, err := GetWithContext(ctx, ref, options...)
	if err != nil {
		return nil, err
	}
	return desc.ImageIndex()
}

func (r *remoteIndex) MediaType() (types.MediaType, error) {
	if r.mediaType != "" {
		return r.mediaType, nil
	}
	return types.DockerManifestList, nil
}

func (r *remoteIndex) Digest() (v1.Hash, error) {
	if r.descriptor != nil {
		return r.descriptor.Digest, nil
	}
	return partial.Digest(r)
}

func (r *remoteIndex) Size() (int64, error) {
	if r.descriptor != nil {
		return r.descriptor.Size, nil
	}
	return partial.Size(r)
}

func (r *remoteIndex) RawManifest() ([]byte, error) {
	if r.manifest != nil {
		return r.manifest, nil
	}

	manifest, desc, err := r.fetchManifest(r.ctx, r.ref, acceptableIndexMediaTypes)
	if err != nil {
		return nil, err
	}

	r.mediaType = desc.MediaType
	r.manifest = manifest
	r.descriptor = desc
	return r.manifest, nil
}

func (r *remoteIndex) IndexManifest() (*v1.IndexManifest, error) {
	b, err := r.RawManifest()
	if err != nil {
		return nil, err
	}
	return v1.ParseIndexManifest(bytes.NewReader(b))
}

func (r *remoteIndex) Image(h v1.Hash) (v1.Image, error) {
	imgRef, err := r.childRef(h)
	if err != nil {
		return nil, err
	}
	ri := &remoteImage{
		fetcher: r.fetcher,
		ctx:     r.ctx,
		ref:     imgRef,
	}
	imgCore, err := partial.CompressedToImage(ri)
	if err != nil {
		return nil, err
	}
	// Wrap the v1.Layers returned by this v1.Image in a hint for downstream
	// remote.Write calls to facilitate cross-repo "mounting".
	return &mountableImage{
		Image:     imgCore,
		Reference: r.ref,
	}, nil
}

func (r *remoteIndex) ImageIndex(h v1.Hash) (v1.ImageIndex, error) {
	idxRef, err := r.childRef(h)
	if err != nil {
		return nil, err
	}
	return &remoteIndex{
		fetcher: r.fetcher,
		ctx:     r.ctx,
		ref:     idxRef,
	}, nil
}

// ImageByPlatform naively matches the first manifest with matching
// Architecture and OS.
//
// TODO: use github.com/containerd/containerd/platforms once this module
// depends on the OCI image-spec types directly.
func (r *remoteIndex) ImageByPlatform(platform v1.Platform) (v1.Image, error) {
	desc, err := r.DescriptorByPlatform(platform)
	if err != nil {
		return nil, err
	}

	// Descriptor.Image will call back into here if it's an index.
	return desc.Image()
}

func (r *remoteIndex) DescriptorByPlatform(platform v1.Platform) (*Descriptor, error) {
	index, err := r.IndexManifest()
	if err != nil {
		return nil, err
	}
	for _, childDesc := range index.Manifests {
		// If platform is missing from child descriptor, assume it's amd64/linux.
		p := defaultPlatform
		if childDesc.Platform != nil {
			p = *childDesc.Platform
		}
		if platform.Architecture == p.Architecture && platform.OS == p.OS {
			childRef, err := r.childRef(childDesc.Digest)
			if err != nil {
				return nil, err
			}
			manifest, desc, err := r.fetchManifest(r.ctx, childRef, []types.MediaType{childDesc.MediaType})
			if err != nil {
				return nil, err
			}

			return &Descriptor{
				fetcher:    r.fetcher,
				ctx:        r.ctx,
				ref:        childRef,
				Manifest:   manifest,
				Descriptor: *desc,
				platform:   platform,
			}, nil
		}
	}
	return nil, fmt.Errorf("no matching image for %s/%s in %s", platform.Architecture, platform.OS, r.ref)
}

func (r *remoteIndex) childRef(h v1.Hash) (name.Reference, error) {
	return name.ParseReference(fmt.Sprintf("%s@%s", r.ref.Context(), h), name.StrictValidation)
}
