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
	"fmt"
	"io"

	"github.com/pnxs/docker-registry-go/internal/verify"
	"github.com/pnxs/docker-registry-go/pkg/name"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/partial"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// remoteImage accesses an image's manifest and config over a fetcher,
// implementing partial.CompressedImageCore.
type remoteImage struct {
	fetcher
	ctx       context.Context
	ref       name.Reference
	manifest  []byte
	mediaType types.MediaType
}

var _ partial.CompressedImageCore = (*remoteImage)(nil)

// Image reads ref from the registry, returning a v1.Image whose layers
// are fetched lazily as they're read.
func Image(ref name.Reference, options ...Option) (v1.Image, error) {
	return ImageWithContext(context.Background(), ref, options...)
}

// ImageWithContext is like Image, but the requests it issues honor ctx.
func ImageWithContext(ctx context.Context, ref name.Reference, options ...Option) (v1.Image, error) {
	desc, err := GetWithContext(ctx, ref, options...)
	if err != nil {
		return nil, err
	}
	return desc.Image()
}

// MediaType implements partial.WithMediaType, defaulting to Docker's
// schema 2 media type when this remoteImage wasn't resolved through a
// Descriptor that already knows better.
func (r *remoteImage) MediaType() (types.MediaType, error) {
	if r.mediaType == "" {
		return types.DockerManifestSchema2, nil
	}
	return r.mediaType, nil
}

// RawManifest implements partial.WithRawManifest.
func (r *remoteImage) RawManifest() ([]byte, error) {
	if r.manifest != nil {
		return r.manifest, nil
	}
	b, desc, err := r.fetchManifest(r.ctx, r.ref, acceptableImageMediaTypes)
	if err != nil {
		return nil, err
	}
	r.mediaType = desc.MediaType
	r.manifest = b
	return r.manifest, nil
}

// RawConfigFile implements partial.WithRawConfigFile.
func (r *remoteImage) RawConfigFile() ([]byte, error) {
	m, err := partial.Manifest(r)
	if err != nil {
		return nil, err
	}
	l, err := r.LayerByDigest(m.Config.Digest)
	if err != nil {
		return nil, err
	}
	rc, err := l.Compressed()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LayerByDigest implements partial.CompressedImageCore.
func (r *remoteImage) LayerByDigest(h v1.Hash) (partial.CompressedLayer, error) {
	return &remoteLayer{
		ri:     r,
		digest: h,
	}, nil
}

// remoteLayer implements partial.CompressedLayer by reading a blob from
// the registry on demand.
type remoteLayer struct {
	ri     *remoteImage
	digest v1.Hash
}

// Digest implements partial.CompressedLayer.
func (rl *remoteLayer) Digest() (v1.Hash, error) {
	return rl.digest, nil
}

// Compressed implements partial.CompressedLayer.
func (rl *remoteLayer) Compressed() (io.ReadCloser, error) {
	return rl.ri.fetchBlob(rl.ri.ctx, verify.SizeUnknown, rl.digest)
}

// Size implements partial.CompressedLayer, consulting the manifest it
// was built from instead of issuing a request.
func (rl *remoteLayer) Size() (int64, error) {
	return partial.BlobSize(rl, rl.digest)
}

// MediaType implements partial.CompressedLayer by looking up this
// layer's descriptor in its image's manifest.
func (rl *remoteLayer) MediaType() (types.MediaType, error) {
	m, err := partial.Manifest(rl.ri)
	if err != nil {
		return "", err
	}
	for _, desc := range m.Layers {
		if desc.Digest == rl.digest {
			return desc.MediaType, nil
		}
	}
	return "", fmt.Errorf("layer %v not found in manifest", rl.digest)
}

// Manifest implements partial.WithManifest so that partial.BlobSize can
// look up this layer's size without an extra round trip.
func (rl *remoteLayer) Manifest() (*v1.Manifest, error) {
	return partial.Manifest(rl.ri)
}

// Exists implements the exister interface used by partial.Exists,
// checking blob presence with a HEAD request instead of downloading it.
func (rl *remoteLayer) Exists() (bool, error) {
	return rl.ri.blobExists(rl.ri.ctx, rl.digest)
}

// mountableImage wraps a resolved v1.Image together with the reference
// it was pulled from, so that remote.Write can mount its layers into a
// destination repository instead of re-uploading them.
type mountableImage struct {
	v1.Image
	Reference name.Reference
}

// Layers wraps each of the underlying image's layers in a
// MountableLayer carrying the same origin reference.
func (mi *mountableImage) Layers() ([]v1.Layer, error) {
	ls, err := mi.Image.Layers()
	if err != nil {
		return nil, err
	}
	out := make([]v1.Layer, 0, len(ls))
	for _, l := range ls {
		out = append(out, &MountableLayer{
			Layer:     l,
			Reference: mi.Reference,
		})
	}
	return out, nil
}

// MountableLayer wraps a v1.Layer with the reference it was resolved
// from, letting remote.Write attempt a cross-repository blob mount
// before falling back to a full upload.
type MountableLayer struct {
	v1.Layer
	Reference name.Reference
}
