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

// Package v1 contains the digest and descriptor value objects shared by
// every other package in this module.
package v1

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Hash is an (algorithm, hex) content digest.
type Hash struct {
	// Algorithm holds the algorithm used to compute the digest, e.g. "sha256".
	Algorithm string

	// Hex holds the hex portion of the digest, lowercased.
	Hex string
}

// String reproduces "<algorithm>:<hex>".
func (h Hash) String() string {
	return h.Algorithm + ":" + h.Hex
}

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	n, err := NewHash(s)
	if err != nil {
		return err
	}
	*h = n
	return nil
}

// MarshalText implements encoding.TextMarshaler, so a Hash can be used
// as a map key.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	n, err := NewHash(string(text))
	if err != nil {
		return err
	}
	*h = n
	return nil
}

// hexLength is the expected length, in hex characters, of a digest
// computed with the given algorithm.
var hexLength = map[string]int{
	"sha256": 64,
	"sha512": 128,
}

func newHasher(alg string) (hash.Hash, error) {
	switch alg {
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", alg)
	}
}

// NewHash validates the given string as a "<algorithm>:<hex>" digest.
func NewHash(s string) (Hash, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Hash{}, fmt.Errorf("cannot parse hash: %q", s)
	}
	alg, hx := parts[0], strings.ToLower(parts[1])

	wantLen, ok := hexLength[alg]
	if !ok {
		return Hash{}, fmt.Errorf("unsupported hash algorithm: %q", alg)
	}
	if len(hx) != wantLen {
		return Hash{}, fmt.Errorf("wrong number of hex digits for %s: %q", alg, s)
	}
	if _, err := hex.DecodeString(hx); err != nil {
		return Hash{}, fmt.Errorf("cannot parse hash: %q: %w", s, err)
	}

	return Hash{Algorithm: alg, Hex: hx}, nil
}

// SHA256 computes the sha256 digest and size of r.
func SHA256(r io.Reader) (Hash, int64, error) {
	return hashReader("sha256", r)
}

// SHA512 computes the sha512 digest and size of r.
func SHA512(r io.Reader) (Hash, int64, error) {
	return hashReader("sha512", r)
}

func hashReader(alg string, r io.Reader) (Hash, int64, error) {
	h, err := newHasher(alg)
	if err != nil {
		return Hash{}, 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return Hash{}, 0, err
	}
	return Hash{Algorithm: alg, Hex: hex.EncodeToString(h.Sum(nil))}, n, nil
}

// Verify reports whether the given reader's content hashes to h.
func (h Hash) Verify(r io.Reader) (bool, error) {
	hasher, err := newHasher(h.Algorithm)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(hasher, r); err != nil {
		return false, err
	}
	got := hex.EncodeToString(hasher.Sum(nil))
	return strings.EqualFold(got, h.Hex), nil
}
