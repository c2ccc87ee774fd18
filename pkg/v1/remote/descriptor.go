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
	"context"
	"errors"
	"fmt"

	"github.com/pnxs/docker-registry-go/pkg/name"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/partial"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

var defaultPlatform = v1.Platform{
	Architecture: "amd64",
	OS:           "linux",
}

// Schema1Error is returned by Descriptor.Image when the resolved
// manifest uses the legacy, unsigned or signed Docker schema 1 format,
// which this module declines to parse.
var Schema1Error = errors.New("unsupported MediaType: schema 1 manifests are not supported")

var acceptableImageMediaTypes = []types.MediaType{
	types.DockerManifestSchema2,
	types.OCIManifestSchema1,
	types.DockerManifestList,
	types.OCIImageIndex,
	// Accepted so Descriptor.Image can return Schema1Error instead of a
	// registry-side "unsupported media type" response.
	types.DockerManifestSchema1,
	types.DockerManifestSchema1Signed,
}

var acceptableIndexMediaTypes = []types.MediaType{
	types.DockerManifestList,
	types.OCIImageIndex,
}

// Descriptor holds the manifest bytes and content descriptor returned by
// Get or Head, along with enough state to resolve it further into a
// v1.Image or v1.ImageIndex.
type Descriptor struct {
	fetcher
	ctx context.Context
	ref name.Reference
	v1.Descriptor
	Manifest []byte

	// So we can share this implementation with Image.
	platform v1.Platform
}

// Get returns the unresolved manifest for ref, accepting any media type
// the rest of this package knows how to turn into a v1.Image or
// v1.ImageIndex.
func Get(ref name.Reference, options ...Option) (*Descriptor, error) {
	return GetWithContext(context.Background(), ref, options...)
}

// GetWithContext is like Get, but the request it issues honors ctx.
func GetWithContext(ctx context.Context, ref name.Reference, options ...Option) (*Descriptor, error) {
	o, err := makeOptions(ref.Context(), options...)
	if err != nil {
		return nil, err
	}
	o.context = ctx
	f, err := makeFetcher(ctx, ref, o)
	if err != nil {
		return nil, err
	}
	return f.get(ctx, ref, acceptableImageMediaTypes, o.platform)
}

// Head returns ref's content descriptor without fetching its manifest
// body, via a HEAD request.
func Head(ref name.Reference, options ...Option) (*v1.Descriptor, error) {
	return HeadWithContext(context.Background(), ref, options...)
}

// HeadWithContext is like Head, but the request it issues honors ctx.
func HeadWithContext(ctx context.Context, ref name.Reference, options ...Option) (*v1.Descriptor, error) {
	o, err := makeOptions(ref.Context(), options...)
	if err != nil {
		return nil, err
	}
	f, err := makeFetcher(ctx, ref, o)
	if err != nil {
		return nil, err
	}
	return f.headManifest(ctx, ref, acceptableImageMediaTypes)
}

// Image resolves the descriptor's manifest into a v1.Image, following a
// multi-platform index down to the descriptor's target platform, and
// returning Schema1Error for the two schema 1 media types.
func (d *Descriptor) Image() (v1.Image, error) {
	switch d.MediaType {
	case types.OCIImageIndex, types.DockerManifestList:
		// We want an image but the registry has an index, resolve it to an image.
		return d.remoteIndex().ImageByPlatform(d.platform)
	case types.DockerManifestSchema1, types.DockerManifestSchema1Signed:
		return nil, Schema1Error
	case types.OCIManifestSchema1, types.DockerManifestSchema2:
		// These are expected. Enumerated here to allow a default case.
	default:
		// Some registries (e.g. static registries) don't set Content-Type
		// correctly; assume it's an image manifest and let parsing fail
		// downstream if it isn't.
	}

	ri := d.remoteImage()
	imgCore, err := partial.CompressedToImage(ri)
	if err != nil {
		return nil, err
	}

	// Wrap the v1.Layers returned by this v1.Image in a hint for downstream
	// remote.Write calls to facilitate cross-repo "mounting".
	return &mountableImage{
		Image:     imgCore,
		Reference: d.ref,
	}, nil
}

// ImageIndex resolves the descriptor's manifest into a v1.ImageIndex,
// returning Schema1Error for the two schema 1 media types and an error
// for single-image manifests.
func (d *Descriptor) ImageIndex() (v1.ImageIndex, error) {
	switch d.MediaType {
	case types.DockerManifestSchema1, types.DockerManifestSchema1Signed:
		return nil, Schema1Error
	case types.OCIManifestSchema1, types.DockerManifestSchema2:
		return nil, fmt.Errorf("unexpected media type for ImageIndex(): %s; call Image() instead", d.MediaType)
	}
	return d.remoteIndex(), nil
}

func (d *Descriptor) remoteImage() *remoteImage {
	return &remoteImage{
		fetcher:   d.fetcher,
		ctx:       d.ctx,
		ref:       d.ref,
		manifest:  d.Manifest,
		mediaType: d.MediaType,
	}
}

func (d *Descriptor) remoteIndex() *remoteIndex {
	return &remoteIndex{
		fetcher:    d.fetcher,
		ctx:        d.ctx,
		ref:        d.ref,
		manifest:   d.Manifest,
		mediaType:  d.MediaType,
		descriptor: &d.Descriptor,
	}
}
