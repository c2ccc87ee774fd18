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

// Package random provides pseudo-random image, index and layer generation
// for use in tests.
package random

import (
	"archive/tar"
	"bytes"
	"io"
	"math/rand"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/tarball"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// Layer returns a layer with pseudo-randomly generated content, consisting
// of a single file of the given size at the root of the tar archive.
//
// The content is drawn from the Option's rand.Source (by default a
// math/rand source seeded from the global math/rand generator), so two calls with the same WithSource produce byte-identical
// layers, and two calls without one almost certainly do not.
func Layer(byteSize int64, mt types.MediaType, opts ...Option) (v1.Layer, error) {
	o := getOptions(opts)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "random_file",
		Size:     byteSize,
		Typeflag: tar.TypeReg,
		Mode:     0600,
	}); err != nil {
		return nil, err
	}
	if _, err := io.CopyN(tw, rand.New(o.source), byteSize); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	bts := buf.Bytes()
	return tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(bts)), nil
	}, tarball.WithMediaType(mt))
}
