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
)

// Index returns a pseudo-randomly generated ImageIndex with numImages
// images, each with numLayers layers of byteSize bytes.
func Index(byteSize, numLayers, numImages int64, opts ...Option) (v1.ImageIndex, error) {
	o := getOptions(opts)

	adds := make([]mutate.IndexAddendum, 0, numImages)
	for i := int64(0); i < numImages; i++ {
		img, err := Image(byteSize, numLayers, WithSource(o.source))
		if err != nil {
			return nil, err
		}
		adds = append(adds, mutate.IndexAddendum{Add: img})
	}

	return mutate.AppendManifests(empty.Index, adds...), nil
}
