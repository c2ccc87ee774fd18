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

// Package name implements Docker/OCI image reference parsing:
//
//	REF := [HOST '/'] PATH [':' TAG | '@' DIGEST]
package name

import "strings"

// Reference is either a Tag or a Digest on some Repository.
type Reference interface {
	// Context accesses the Repository this reference is within.
	Context() Repository

	// Identifier accesses the tag or digest of this reference.
	Identifier() string

	// Name combines Context().Name() and Identifier() into a single string.
	Name() string

	// String returns the input-shape-preserving display form.
	String() string
}

var _ Reference = Tag{}
var _ Reference = Digest{}

// Context implements Reference.
func (t Tag) Context() Repository { return t.Repository }

// Context implements Reference.
func (d Digest) Context() Repository { return d.Repository }

// ParseReference parses the string as a reference, either by tag or by
// digest, defaulting to DefaultTag when neither is present.
func ParseReference(s string, opts ...Strictness) (Reference, error) {
	if strings.Contains(s, digestDelim) {
		return NewDigest(s, opts...)
	}
	return NewTag(s, opts...)
}

// ParseWriteReference is like ParseReference, but when the input names
// both a tag and a digest (e.g. "repo:tag@sha256:...") the returned
// reference is the Tag, since that's what most registries require for
// write operations. Read operations should prefer ParseReference so
// that a supplied digest is honored and verified.
func ParseWriteReference(s string, opts ...Strictness) (Reference, error) {
	if strings.Contains(s, digestDelim) {
		if idx := strings.Index(s, digestDelim); idx >= 0 {
			base := s[:idx]
			if strings.Contains(base, ":") {
				return NewTag(base, opts...)
			}
		}
	}
	return ParseReference(s, opts...)
}
