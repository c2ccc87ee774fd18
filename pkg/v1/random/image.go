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

package random

import (
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/empty"
	"github.com/pnxs/docker-registry-go/pkg/v1/mutate"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// Image returns a pseudo-randomly generated Image with the given number of
// layers, each of byteSize bytes.
func Image(byteSize, numLayers int64, opts ...Option) (v1.Image, error) {
	o := getOptions(opts)

	layers := make([]v1.Layer, 0, numLayers)
	for i := int64(0); i < numLayers; i++ {
		layer, err := Layer(byteSize, types.DockerLayer, WithSource(o.source))
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}

	return mutate.AppendLayers(empty.Image, layers...)
}
