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

package empty

import (
	"fmt"

	"github.com/pnxs/docker-registry-go/pkg/v1/partial"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
)

// Image is a v1.Image with no layers, for building up new images from
// scratch on top of mutate.AppendLayers/mutate.Append.
var Image v1.Image = emptyImage{}

type emptyImage struct{}

func (i emptyImage) Layers() ([]v1.Layer, error) {
	return nil, nil
}

func (i emptyImage) MediaType() (types.MediaType, error) {
	return types.OCIManifestSchema1, nil
}

func (i emptyImage) Size() (int64, error) {
	return partial.Size(i)
}

func (i emptyImage) ConfigName() (v1.Hash, error) {
	return partial.ConfigName(i)
}

func (i emptyImage) ConfigFile() (*v1.ConfigFile, error) {
	return &v1.ConfigFile{
		RootFS: v1.RootFS{
			// Some clients check this.
			Type: "layers",
		},
	}, nil
}

func (i emptyImage) RawConfigFile() ([]byte, error) {
	return partial.RawConfigFile(i)
}

func (i emptyImage) Digest() (v1.Hash, error) {
	return partial.Digest(i)
}

func (i emptyImage) Manifest() (*v1.Manifest, error) {
	cfgName, err := i.ConfigName()
	if err != nil {
		return nil, err
	}
	rcfg, err := i.RawConfigFile()
	if err != nil {
		return nil, err
	}
	cfgSize := int64(len(rcfg))
	mt, err := i.MediaType()
	if err != nil {
		return nil, err
	}
	return &v1.Manifest{
		SchemaVersion: 2,
		MediaType:     mt,
		Config: v1.Descriptor{
			MediaType: types.OCIConfigJSON,
			Size:      cfgSize,
			Digest:    cfgName,
		},
	}, nil
}

func (i emptyImage) RawManifest() ([]byte, error) {
	return partial.RawManifest(i)
}

func (i emptyImage) LayerByDigest(h v1.Hash) (v1.Layer, error) {
	if cfgName, err := i.ConfigName(); err == nil && cfgName == h {
		return partial.ConfigLayer(i)
	}
	return nil, fmt.Errorf("unknown digest %v", h)
}

func (i emptyImage) LayerByDiffID(h v1.Hash) (v1.Layer, error) {
	return nil, fmt.Errorf("unknown diffID %v", h)
}
