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

package partial

import (
	"compress/gzip"
	"io"
	"io/ioutil"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// UncompressedLayer represents the bare minimum interface a natively
// uncompressed layer must implement for us to produce a v1.Layer.
type UncompressedLayer interface {
	// DiffID returns the Hash of the uncompressed layer.
	DiffID() (v1.Hash, error)

	// Uncompressed returns an io.ReadCloser for the uncompressed layer contents.
	Uncompressed() (io.ReadCloser, error)

	// MediaType returns the media type of the Layer.
	MediaType() (types.MediaType, error)
}

// uncompressedLayerExtender implements v1.Layer by "filling in" the
// compressed methods with ones that compress the uncompressed stream.
type uncompressedLayerExtender struct {
	UncompressedLayer
}

var _ v1.Layer = (*uncompressedLayerExtender)(nil)

// Digest implements v1.Layer
func (ule *uncompressedLayerExtender) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(compressReader(ule))
	return h, err
}

// Size implements v1.Layer
func (ule *uncompressedLayerExtender) Size() (int64, error) {
	_, n, err := v1.SHA256(compressReader(ule))
	return n, err
}

// Compressed implements v1.Layer
func (ule *uncompressedLayerExtender) Compressed() (io.ReadCloser, error) {
	u, err := ule.Uncompressed()
	if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(gzipReader(u)), nil
}

func compressReader(ule UncompressedLayer) io.Reader {
	u, err := ule.Uncompressed()
	if err != nil {
		return errReader{err}
	}
	return gzipReader(u)
}

// gzipReader gzips r on the fly into a single io.Reader, closing the
// source stream once it is exhausted.
func gzipReader(r io.ReadCloser) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		defer r.Close()
		zw := gzip.NewWriter(pw)
		_, err := io.Copy(zw, r)
		if err == nil {
			err = zw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// UncompressedToLayer fills in the missing methods from an
// UncompressedLayer so that it implements v1.Layer.
func UncompressedToLayer(ul UncompressedLayer) (v1.Layer, error) {
	return &uncompressedLayerExtender{ul}, nil
}

// UncompressedImageCore represents the bare minimum interface a natively
// uncompressed image must implement for us to produce a v1.Image.
type UncompressedImageCore interface {
	WithRawConfigFile

	// LayerByDiffID is a variation on the v1.Image method, which returns
	// an UncompressedLayer instead of a v1.Layer, for efficiency.
	LayerByDiffID(v1.Hash) (UncompressedLayer, error)
}

// uncompressedImageExtender implements v1.Image by "filling in" the
// compressed methods with ones that compress the uncompressed layers.
type uncompressedImageExtender struct {
	UncompressedImageCore
}

var _ v1.Image = (*uncompressedImageExtender)(nil)

// ConfigName implements v1.Image
func (uie *uncompressedImageExtender) ConfigName() (v1.Hash, error) {
	return ConfigName(uie)
}

// ConfigFile implements v1.Image
func (uie *uncompressedImageExtender) ConfigFile() (*v1.ConfigFile, error) {
	return ConfigFile(uie)
}

// Digest implements v1.Image
func (uie *uncompressedImageExtender) Digest() (v1.Hash, error) {
	return Digest(uie)
}

// Size implements v1.Image
func (uie *uncompressedImageExtender) Size() (int64, error) {
	return Size(uie)
}

// Manifest implements v1.Image
func (uie *uncompressedImageExtender) Manifest() (*v1.Manifest, error) {
	return Manifest(uie)
}

// RawManifest implements v1.Image
func (uie *uncompressedImageExtender) RawManifest() ([]byte, error) {
	return RawManifest(uie)
}

// LayerByDigest implements v1.Image
func (uie *uncompressedImageExtender) LayerByDigest(h v1.Hash) (v1.Layer, error) {
	diffID, err := DiffIDToBlob(uie, h)
	if err != nil {
		return nil, err
	}
	under, err := uie.LayerByDiffID(diffID)
	if err != nil {
		return nil, err
	}
	l, err := UncompressedToLayer(under)
	if err != nil {
		return nil, err
	}
	return &compressedLayerWithDigest{l, h}, nil
}

// LayerByDiffID implements v1.Image
func (uie *uncompressedImageExtender) LayerByDiffID(diffID v1.Hash) (v1.Layer, error) {
	under, err := uie.UncompressedImageCore.LayerByDiffID(diffID)
	if err != nil {
		return nil, err
	}
	return UncompressedToLayer(under)
}

// compressedLayerWithDigest wraps a v1.Layer with a known compressed
// digest, to avoid recomputing it after it has already been looked up by
// the caller.
type compressedLayerWithDigest struct {
	v1.Layer
	digest v1.Hash
}

func (c *compressedLayerWithDigest) Digest() (v1.Hash, error) {
	return c.digest, nil
}

func (uie *uncompressedImageExtender) Layers() ([]v1.Layer, error) {
	cfg, err := uie.ConfigFile()
	if err != nil {
		return nil, err
	}
	ls := make([]v1.Layer, 0, len(cfg.RootFS.DiffIDs))
	for _, diffID := range cfg.RootFS.DiffIDs {
		under, err := uie.LayerByDiffID(diffID)
		if err != nil {
			return nil, err
		}
		l, err := UncompressedToLayer(under)
		if err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	return ls, nil
}

// MediaType implements v1.Image
func (uie *uncompressedImageExtender) MediaType() (types.MediaType, error) {
	if wmt, ok := uie.UncompressedImageCore.(WithMediaType); ok {
		return wmt.MediaType()
	}
	return types.DockerManifestSchema2, nil
}

// UncompressedToImage fills in the missing methods from an
// UncompressedImageCore so that it implements v1.Image.
func UncompressedToImage(uic UncompressedImageCore) (v1.Image, error) {
	return &uncompressedImageExtender{
		UncompressedImageCore: uic,
	}, nil
}
