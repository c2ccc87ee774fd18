// Copyright 2020 Google LLC All Rights Reserved.
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

// Package match provides functions for matching v1.Descriptors against
// arbitrary conditions, for use with pkg/v1/mutate's index-editing helpers.
package match

import (
	imagespec "github.com/opencontainers/image-spec/specs-go/v1"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
)

// Matcher function that is given a v1.Descriptor, and returns whether or
// not the given v1.Descriptor matches a condition.
type Matcher func(v1.Descriptor) bool

// Name returns a match.Matcher that matches a descriptor if the given name
// matches the descriptor's annotated name.
func Name(name string) Matcher {
	return Annotation(imagespec.AnnotationRefName, name)
}

// Annotation returns a match.Matcher that matches a descriptor if the given
// key/value pair is among its annotations.
func Annotation(key, value string) Matcher {
	return func(desc v1.Descriptor) bool {
		if desc.Annotations == nil {
			return false
		}
		if v, ok := desc.Annotations[key]; ok && v == value {
			return true
		}
		return false
	}
}

// Platforms returns a match.Matcher that matches a descriptor if the
// descriptor's platform matches any of the given platforms.
func Platforms(platforms ...v1.Platform) Matcher {
	return func(desc v1.Descriptor) bool {
		if desc.Platform == nil {
			return false
		}
		for _, platform := range platforms {
			if desc.Platform.Equals(platform) {
				return true
			}
		}
		return false
	}
}

// MediaTypes returns a match.Matcher that matches a descriptor if the
// descriptor's media type is any of the given media types.
func MediaTypes(mediaTypes ...string) Matcher {
	mts := map[string]bool{}
	for _, mt := range mediaTypes {
		mts[mt] = true
	}
	return func(desc v1.Descriptor) bool {
		if desc.MediaType == "" {
			return false
		}
		if mts[string(desc.MediaType)] {
			return true
		}
		return false
	}
}

// Digests returns a match.Matcher that matches a descriptor if the
// descriptor's digest is any of the given digests.
func Digests(digests ...v1.Hash) Matcher {
	digestMap := map[v1.Hash]bool{}
	for _, digest := range digests {
		digestMap[digest] = true
	}
	return func(desc v1.Descriptor) bool {
		return digestMap[desc.Digest]
	}
}
