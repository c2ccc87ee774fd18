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

// Package gzip peeks at a stream to determine whether it is gzip-compressed,
// without consuming it.
package gzip

import (
	"bufio"
	"bytes"
	"io"
)

// MagicHeader is the gzip magic two bytes.
var MagicHeader = []byte{'\x1f', '\x8b'}

// Is detects whether the input stream is gzip compressed. The returned
// io.Reader has all of r's bytes still to read, including the bytes peeked
// at to make the determination.
func Is(r io.Reader) (bool, io.Reader, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil {
		// Empty streams are not gzipped.
		if err == io.EOF {
			return false, br, nil
		}
		return false, br, err
	}
	return bytes.Equal(header, MagicHeader), br, nil
}
