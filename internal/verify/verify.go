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

// Package verify provides a ReadCloser that verifies content as it is
// read against a digest and (optionally) a known size: every fetched blob
// and manifest must
// be checked against its requested or advertised digest before being
// handed to the caller.
package verify

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
)

// SizeUnknown indicates that the size of the content is unknown, in
// which case only the digest is checked.
const SizeUnknown = -1

// ErrDigestMismatch is wrapped by the error returned from a verified
// ReadCloser once the computed digest disagrees with the one it was
// asked to verify against. Callers that need to distinguish "the
// content changed underneath us" from every other kind of I/O or
// transport failure should check for it with errors.Is.
var ErrDigestMismatch = errors.New("content digest mismatch")

func hasherFor(alg string) (hash.Hash, error) {
	switch alg {
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", alg)
	}
}

type verifyReader struct {
	inner    io.Reader
	hasher   hash.Hash
	expected v1.Hash
	wantSize int64
	gotSize  int64
}

// ReadCloser wraps rc such that its content is verified against h as it
// is read. Once the wrapped reader is drained, a size mismatch (when
// wantSize is not SizeUnknown) or a digest mismatch is surfaced as the
// error from the final Read call, so that a caller who does not fully
// drain the reader never sees a false positive.
func ReadCloser(rc io.ReadCloser, wantSize int64, h v1.Hash) (io.ReadCloser, error) {
	hasher, err := hasherFor(h.Algorithm)
	if err != nil {
		return nil, err
	}
	r := &verifyReader{
		inner:    rc,
		hasher:   hasher,
		expected: h,
		wantSize: wantSize,
	}
	return &readAndCloser{Reader: r, closer: rc.Close}, nil
}

type readAndCloser struct {
	io.Reader
	closer func() error
}

func (rac *readAndCloser) Close() error {
	return rac.closer()
}

func (r *verifyReader) Read(b []byte) (int, error) {
	n, err := r.inner.Read(b)
	r.gotSize += int64(n)
	if n > 0 {
		if _, werr := r.hasher.Write(b[:n]); werr != nil {
			return n, werr
		}
	}
	if err == io.EOF {
		if r.wantSize != SizeUnknown && r.gotSize != r.wantSize {
			return n, fmt.Errorf("error verifying size; got %d, want %d", r.gotSize, r.wantSize)
		}
		got := fmt.Sprintf("%x", r.hasher.Sum(nil))
		if got != r.expected.Hex {
			return n, fmt.Errorf("%w: error verifying %s checksum; got %q, want %q", ErrDigestMismatch, r.expected.Algorithm, got, r.expected.Hex)
		}
	}
	return n, err
}

// Descriptor verifies that the descriptor's inline Data matches its
// Digest and Size, returning a descriptive error if not.
func Descriptor(d v1.Descriptor) error {
	if d.Data == nil {
		return fmt.Errorf("error verifying descriptor; Data == nil")
	}

	hasher := sha256.New()
	hasher.Write(d.Data)
	gotHash := v1.Hash{Algorithm: "sha256", Hex: fmt.Sprintf("%x", hasher.Sum(nil))}
	if gotHash.String() != d.Digest.String() {
		return fmt.Errorf("error verifying Digest; got %q, want %q", gotHash, d.Digest)
	}

	if want, got := d.Size, int64(len(d.Data)); want != got {
		return fmt.Errorf("error verifying Size; got %d, want %d", got, want)
	}

	return nil
}
