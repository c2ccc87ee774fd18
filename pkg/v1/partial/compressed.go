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

package partial

import (
	"compress/gzip"
	"io"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// CompressedLayer represents the bare minimum interface a natively
// compressed layer must implement for us to produce a v1.Layer.
type CompressedLayer interface {
	// Digest returns the Hash of the compressed layer.
	Digest() (v1.Hash, error)

	// Compressed returns an io.ReadCloser for the compressed layer contents.
	Compressed() (io.ReadCloser, error)

	// Size returns the compressed size of the Layer.
	Size() (int64, error)

	// MediaType returns the media type of the Layer.
	MediaType() (types.MediaType, error)
}

// compressedLayerExtender implements v1.Layer by "filling in" the
// uncompressed methods with ones that decompress the compressed stream.
type compressedLayerExtender struct {
	CompressedLayer
}

// Uncompressed implements v1.Layer
func (cle *compressedLayerExtender) Uncompressed() (io.ReadCloser, error) {
	r, err := cle.Compressed()
	if err != nil {
		return nil, err
	}
	return gzip.NewReader(r)
}

// DiffID implements v1.Layer
func (cle *compressedLayerExtender) DiffID() (v1.Hash, error) {
	r, err := cle.Uncompressed()
	if err != nil {
		return v1.Hash{}, err
	}
	defer r.Close()
	h, _, err := v1.SHA256(r)
	return h, err
}

// CompressedToLayer fills in the missing methods from a CompressedLayer so
// that it implements v1.Layer.
func CompressedToLayer(ul CompressedLayer) (v1.Layer, error) {
	return &compressedLayerExtender{ul}, nil
}

// CompressedImageCore represents the bare minimum interface a natively
// compressed image must implement for us to produce a v1.Image.
type CompressedImageCore interface {
	WithRawManifest
	WithRawConfigFile

	// LayerByDigest is a variation on the v1.Image method, which returns
	// a CompressedLayer instead of a v1.Layer, for efficiency.
	LayerByDigest(v1.Hash) (CompressedLayer, error)
}

// compressedImageExtender implements v1.Image by "filling in" the
// uncompressed methods with ones that decompress the compressed layers.
type compressedImageExtender struct {
	CompressedImageCore
}

var _ v1.Image = (*compressedImageExtender)(nil)

// ConfigName implements v1.Image
func (cie *compressedImageExtender) ConfigName() (v1.Hash, error) {
	return ConfigName(cie)
}

// ConfigFile implements v1.Image
func (cie *compressedImageExtender) ConfigFile() (*v1.ConfigFile, error) {
	return ConfigFile(cie)
}

// Digest implements v1.Image
func (cie *compressedImageExtender) Digest() (v1.Hash, error) {
	return Digest(cie)
}

// Size implements v1.Image
func (cie *compressedImageExtender) Size() (int64, error) {
	return Size(cie)
}

// Manifest implements v1.Image
func (cie *compressedImageExtender) Manifest() (*v1.Manifest, error) {
	return Manifest(cie)
}

// LayerByDigest implements v1.Image, wrapping the CompressedLayer returned
// by the underlying CompressedImageCore so that it satisfies v1.Layer.
func (cie *compressedImageExtender) LayerByDigest(h v1.Hash) (v1.Layer, error) {
	cl, err := cie.CompressedImageCore.LayerByDigest(h)
	if err != nil {
		return nil, err
	}
	return CompressedToLayer(cl)
}

// LayerByDiffID implements v1.Image
func (cie *compressedImageExtender) LayerByDiffID(diffID v1.Hash) (v1.Layer, error) {
	h, err := DiffIDToBlob(cie, diffID)
	if err != nil {
		return nil, err
	}
	return cie.LayerByDigest(h)
}

func (cie *compressedImageExtender) Layers() ([]v1.Layer, error) {
	m, err := cie.Manifest()
	if err != nil {
		return nil, err
	}
	ls := make([]v1.Layer, 0, len(m.Layers))
	for _, desc := range m.Layers {
		l, err := cie.LayerByDigest(desc.Digest)
		if err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	return ls, nil
}

// MediaType implements v1.Image
func (cie *compressedImageExtender) MediaType() (types.MediaType, error) {
	if wmt, ok := cie.CompressedImageCore.(WithMediaType); ok {
		return wmt.MediaType()
	}
	return types.DockerManifestSchema2, nil
}

// CompressedToImage fills in the missing methods from a CompressedImageCore
// so that it implements v1.Image.
func CompressedToImage(cic CompressedImageCore) (v1.Image, error) {
	return &compressedImageExtender{
		CompressedImageCore: cic,
	}, nil
}

// exister is implemented by layers (e.g. the remote package's) that can
// check blob existence without downloading it.
type exister interface {
	Exists() (bool, error)
}

// Exists reports whether the layer's blob is present at its origin,
// using a cheap HEAD-style check when the layer supports one and falling
// back to attempting (and discarding) a stream read otherwise.
func Exists(l v1.Layer) (bool, error) {
	if e, ok := l.(exister); ok {
		return e.Exists()
	}
	rc, err := l.Compressed()
	if err != nil {
		return false, nil
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return false, err
	}
	return true, nil
}
