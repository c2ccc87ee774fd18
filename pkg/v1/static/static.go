// Copyright 2021 Google LLC All Rights Reserved.
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

// Package static provides a v1.Layer implementation backed by static bytes
// held in memory, with no compression applied.
package static

import (
	"bytes"
	"io"
	"io/ioutil"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

type layer struct {
	b  []byte
	mt types.MediaType
}

// NewLayer returns a new static layer backed by the given bytes and media
// type. Because the bytes are never compressed, Digest and DiffID match,
// and Compressed and Uncompressed return the same content.
func NewLayer(b []byte, mt types.MediaType) v1.Layer {
	return &layer{
		b:  b,
		mt: mt,
	}
}

func (l *layer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.b))
	return h, err
}

func (l *layer) DiffID() (v1.Hash, error) {
	return l.Digest()
}

func (l *layer) Compressed() (io.ReadCloser, error) {
	return ioutil.NopCloser(bytes.NewReader(l.b)), nil
}

func (l *layer) Uncompressed() (io.ReadCloser, error) {
	return ioutil.NopCloser(bytes.NewReader(l.b)), nil
}

func (l *layer) Size() (int64, error) {
	return int64(len(l.b)), nil
}

func (l *layer) MediaType() (types.MediaType, error) {
	return l.mt, nil
}

var _ v1.Layer = (*layer)(nil)
