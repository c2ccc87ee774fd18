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

package name

import "strings"

const digestDelim = "@"

// Digest is a Repository plus an immutable content digest.
type Digest struct {
	Repository
	digest string
}

// DigestStr returns the digest, e.g. "sha256:deadbeef...".
func (d Digest) DigestStr() string {
	return d.digest
}

// Identifier implements Reference.
func (d Digest) Identifier() string {
	return d.DigestStr()
}

// String implements Reference. It returns the fully qualified
// "<registry>/<repository>@<digest>" form; shorthand in the parsed input
// (an omitted registry or "library/" prefix) is not preserved.
func (d Digest) String() string {
	return d.Name() + digestDelim + d.DigestStr()
}

// NewDigest returns a new Digest for the given string.
func NewDigest(name string, opts ...Strictness) (Digest, error) {
	base, dig, ok := strings.Cut(name, digestDelim)
	if !ok {
		return Digest{}, newErrBadName("a digest must contain '%s': %q", digestDelim, name)
	}
	if !isWellformedDigest(dig) {
		return Digest{}, newErrBadName("a digest must be of the form <algorithm>:<hex>: %q", dig)
	}
	repo, err := NewRepository(base, opts...)
	if err != nil {
		return Digest{}, err
	}
	return Digest{Repository: repo, digest: dig}, nil
}

func isWellformedDigest(s string) bool {
	alg, hex, ok := strings.Cut(s, ":")
	return ok && alg != "" && hex != ""
}
