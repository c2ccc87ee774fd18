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

// Package v1util holds small io helpers shared by the tarball and
// compressed layer implementations.
package v1util

import (
	"bytes"
	"compress/gzip"
	"io"
)

// gzipReadCloser reads uncompressed input from the wrapped ReadCloser,
// gzip-compressing it lazily as Read is called.
type gzipReadCloser struct {
	*io.PipeReader
	closer func() error
}

func (gzrc *gzipReadCloser) Close() error {
	return gzrc.closer()
}

// GzipReadCloser reads all the bytes from the given ReadCloser, gzips
// them, and returns an io.ReadCloser for the compressed bytes using the
// default compression level.
func GzipReadCloser(r io.ReadCloser) io.ReadCloser {
	return GzipReadCloserLevel(r, gzip.DefaultCompression)
}

// GzipReadCloserLevel is like GzipReadCloser, but allows specifying the
// gzip compression level.
func GzipReadCloserLevel(r io.ReadCloser, level int) io.ReadCloser {
	pr, pw := io.Pipe()

	doneDraining := make(chan struct{})

	gzrc := &gzipReadCloser{
		PipeReader: pr,
		closer: func() error {
			<-doneDraining
			return r.Close()
		},
	}

	go func() {
		defer close(doneDraining)
		zw, err := gzip.NewWriterLevel(pw, level)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(zw, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := zw.Close(); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()

	return gzrc
}

// GunzipReadCloser reads gzip-compressed input from the given ReadCloser
// and returns an io.ReadCloser for its uncompressed contents.
func GunzipReadCloser(r io.ReadCloser) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &readAndCloser{
		Reader: gr,
		CloseFunc: func() error {
			if err := gr.Close(); err != nil {
				r.Close()
				return err
			}
			return r.Close()
		},
	}, nil
}

type readAndCloser struct {
	io.Reader
	CloseFunc func() error
}

func (rac *readAndCloser) Close() error {
	return rac.CloseFunc()
}

// gzipMagicHeader is the two-byte prefix of every gzip stream.
var gzipMagicHeader = []byte{'\x1f', '\x8b'}

// IsGzipped reports whether the given reader starts with a gzip magic
// header, without consuming the data that doesn't belong to it.
func IsGzipped(r io.Reader) (bool, error) {
	magicHeader := make([]byte, 2)
	n, err := r.Read(magicHeader)
	if n == 0 && err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bytes.Equal(magicHeader, gzipMagicHeader), nil
}
