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

package tarball

import (
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/containerd/stargz-snapshotter/estargz"

	ext "github.com/pnxs/docker-registry-go/internal/estargz"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
	"github.com/pnxs/docker-registry-go/pkg/v1/v1util"
)

// LayerOption applies options to layer.
type LayerOption func(*layer)

// WithCompressionLevel sets the gzip compression level to use.
func WithCompressionLevel(level int) LayerOption {
	return func(l *layer) {
		l.compressionLevel = level
	}
}

// WithCompressedCaching enables caching of the compressed layer content.
// Useful when the compressed bytes will be read more than once (e.g. to
// compute a digest and then to push or write the layer); the opener is
// still called to compute the diffID and on each Uncompressed call.
func WithCompressedCaching(l *layer) {
	l.compressedCaching = true
}

// WithMediaType forces the media type returned by the layer.
func WithMediaType(mt types.MediaType) LayerOption {
	return func(l *layer) {
		l.mediaType = mt
	}
}

// WithEstargz enables the estargz format for the layer's compressed content.
func WithEstargz(l *layer) {
	l.estgz = true
}

// WithEstargzOptions passes through options to the underlying estargz
// implementation. Implies WithEstargz.
func WithEstargzOptions(opts ...estargz.Option) LayerOption {
	return func(l *layer) {
		l.estgz = true
		l.estgzOptions = opts
	}
}

type layer struct {
	digest     v1.Hash
	diffID     v1.Hash
	size       int64
	compressed bool
	content    Opener

	compressionLevel  int
	compressedCaching bool
	mediaType         types.MediaType

	estgz        bool
	estgzOptions []estargz.Option
	estgzTOC     v1.Hash

	cachedCompressed []byte

	once sync.Once
	err  error
}

// Descriptor returns the original layer descriptor, including any
// estargz table-of-contents annotation computed during construction.
func (l *layer) Descriptor() (v1.Descriptor, error) {
	digest, err := l.Digest()
	if err != nil {
		return v1.Descriptor{}, err
	}
	size, err := l.Size()
	if err != nil {
		return v1.Descriptor{}, err
	}
	mt, err := l.MediaType()
	if err != nil {
		return v1.Descriptor{}, err
	}
	d := v1.Descriptor{
		Digest:    digest,
		Size:      size,
		MediaType: mt,
	}
	if l.estgz && l.estgzTOC != (v1.Hash{}) {
		d.Annotations = map[string]string{
			estargz.TOCJSONDigestAnnotation: l.estgzTOC.String(),
		}
	}
	return d, nil
}

func (l *layer) Digest() (v1.Hash, error) {
	if err := l.calcFields(); err != nil {
		return v1.Hash{}, err
	}
	return l.digest, nil
}

func (l *layer) DiffID() (v1.Hash, error) {
	if err := l.calcFields(); err != nil {
		return v1.Hash{}, err
	}
	return l.diffID, nil
}

func (l *layer) Size() (int64, error) {
	if err := l.calcFields(); err != nil {
		return 0, err
	}
	return l.size, nil
}

func (l *layer) MediaType() (types.MediaType, error) {
	if l.mediaType != "" {
		return l.mediaType, nil
	}
	return types.DockerLayer, nil
}

func (l *layer) Uncompressed() (io.ReadCloser, error) {
	rc, err := l.content()
	if err != nil {
		return nil, err
	}
	if !l.compressed {
		return rc, nil
	}
	return v1util.GunzipReadCloser(rc)
}

func (l *layer) Compressed() (io.ReadCloser, error) {
	if l.cachedCompressed != nil {
		return ioutil.NopCloser(bytes.NewReader(l.cachedCompressed)), nil
	}
	return l.openCompressed()
}

// openCompressed always reads fresh from the content opener, bypassing any
// cached compressed bytes.
func (l *layer) openCompressed() (io.ReadCloser, error) {
	rc, err := l.content()
	if err != nil {
		return nil, err
	}
	if l.compressed {
		return rc, nil
	}
	if l.estgz {
		erc, toc, err := ext.ReadCloser(rc, l.estgzOptions...)
		if err != nil {
			return nil, err
		}
		l.estgzTOC = toc
		return erc, nil
	}
	return v1util.GzipReadCloserLevel(rc, l.compressionLevel), nil
}

// calcFields populates digest, diffID and size exactly once from the
// configured content opener. If compressedCaching was requested, the
// compressed bytes read to compute the digest are kept in memory so that
// subsequent Compressed() calls don't need to re-invoke the opener.
func (l *layer) calcFields() error {
	l.once.Do(func() {
		compressed, err := l.openCompressed()
		if err != nil {
			l.err = err
			return
		}

		if l.compressedCaching {
			bs, err := ioutil.ReadAll(compressed)
			_ = compressed.Close()
			if err != nil {
				l.err = err
				return
			}
			l.cachedCompressed = bs
			digest, size, err := v1.SHA256(bytes.NewReader(bs))
			if err != nil {
				l.err = err
				return
			}
			l.digest = digest
			l.size = size
		} else {
			digest, size, err := v1.SHA256(compressed)
			_ = compressed.Close()
			if err != nil {
				l.err = err
				return
			}
			l.digest = digest
			l.size = size
		}

		uncompressed, err := l.Uncompressed()
		if err != nil {
			l.err = err
			return
		}
		defer uncompressed.Close()

		diffID, _, err := v1.SHA256(uncompressed)
		if err != nil {
			l.err = err
			return
		}
		l.diffID = diffID
	})
	return l.err
}

// LayerFromFile returns a v1.Layer given a path to a tar file, which may be
// gzip-compressed.
func LayerFromFile(path string, opts ...LayerOption) (v1.Layer, error) {
	opener := func() (io.ReadCloser, error) {
		return os.Open(path)
	}
	return LayerFromOpener(opener, opts...)
}

// LayerFromReader returns a v1.Layer given a io.Reader over a tar file,
// which may be gzip-compressed. The reader's content is buffered in memory
// so that it may be read multiple times, to compute the digest and diffID
// and to serve Compressed()/Uncompressed() afterward.
func LayerFromReader(r io.Reader) (v1.Layer, error) {
	bs, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return LayerFromOpener(func() (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader(bs)), nil
	})
}

// LayerFromOpener returns a v1.Layer given an Opener function that returns
// an io.ReadCloser over a tar file, which may be gzip-compressed.
//
// The Opener is called more than once: to detect gzip, to compute the
// digest, to compute the diffID, and on each Compressed and Uncompressed
// call. With WithCompressedCaching, the compressed bytes read for the digest
// are kept in memory and Compressed serves them without calling the Opener.
func LayerFromOpener(opener Opener, opts ...LayerOption) (v1.Layer, error) {
	rc, err := opener()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	compressed, err := v1util.IsGzipped(rc)
	if err != nil {
		return nil, err
	}

	l := &layer{
		compressed:       compressed,
		content:          opener,
		compressionLevel: gzip.BestSpeed,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.calcFields(); err != nil {
		return nil, err
	}

	return l, nil
}

var _ v1.Layer = (*layer)(nil)
