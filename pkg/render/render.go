// Copyright 2024 Google LLC All Rights Reserved.
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

// Package render unpacks an ordered sequence of image layer blobs onto
// disk, applying tar whiteout and opaque-whiteout conventions the way
// the Docker/OCI image spec defines them.
//
// https://github.com/moby/moby/blob/v17.05.0-ce/image/spec/v1.md
package render

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pnxs/docker-registry-go/internal/gzip"
	"github.com/pnxs/docker-registry-go/internal/zstd"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// ErrWrongTarget is returned when the requested unpack target is not
// an existing, absolute directory path.
var ErrWrongTarget = errors.New("render: target must be an existing absolute directory")

// Predicate reports whether the entry at path should be unpacked.
// Directory entries are never offered to a Predicate: they're always
// created, since a later entry may need them as a parent.
type Predicate func(path string) bool

// acceptAll is the Predicate used by Unpack/UnpackLayers.
func acceptAll(string) bool { return true }

// LayerBlob is one layer's compressed tar bytes plus the media type
// that was advertised for it, which selects the decompression
// algorithm: gzip unless MediaType ends in "+zstd".
type LayerBlob struct {
	Bytes     []byte
	MediaType types.MediaType
}

// Unpack unpacks layers (gzip-compressed tar archives, base layer
// first) onto targetDir.
func Unpack(layers [][]byte, targetDir string) error {
	return FilterUnpack(layers, targetDir, acceptAll)
}

// FilterUnpack is Unpack, skipping any non-directory entry for which
// predicate returns false.
func FilterUnpack(layers [][]byte, targetDir string, predicate Predicate) error {
	blobs := make([]LayerBlob, len(layers))
	for i, b := range layers {
		blobs[i] = LayerBlob{Bytes: b}
	}
	return FilterUnpackLayers(blobs, targetDir, predicate)
}

// UnpackLayers unpacks layers (base layer first, each gzip- or
// zstd-compressed per its MediaType) onto targetDir.
func UnpackLayers(layers []LayerBlob, targetDir string) error {
	return FilterUnpackLayers(layers, targetDir, acceptAll)
}

// FilterUnpackLayers is UnpackLayers, skipping any non-directory entry
// for which predicate returns false. Layers are applied strictly in
// the order given; there is no cross-layer deduplication.
func FilterUnpackLayers(layers []LayerBlob, targetDir string, predicate Predicate) error {
	info, err := os.Stat(targetDir)
	if !filepath.IsAbs(targetDir) || err != nil || !info.IsDir() {
		return ErrWrongTarget
	}
	for i, l := range layers {
		if err := unpackLayer(l, targetDir, predicate); err != nil {
			return fmt.Errorf("render: unpacking layer %d: %w", i, err)
		}
	}
	return nil
}

func unpackLayer(layer LayerBlob, targetDir string, predicate Predicate) error {
	info, err := os.Stat(targetDir)
	if !filepath.IsAbs(targetDir) || err != nil || !info.IsDir() {
		return ErrWrongTarget
	}

	rc := io.NopCloser(bytes.NewReader(layer.Bytes))
	var dr io.ReadCloser
	if strings.HasSuffix(string(layer.MediaType), "+zstd") {
		dr, err = zstd.UnzipReadCloser(rc)
	} else {
		dr, err = gzip.UnzipReadCloser(rc)
	}
	if err != nil {
		return err
	}
	defer dr.Close()

	return unpackArchive(tar.NewReader(dr), targetDir, predicate)
}

// unpackArchive applies one layer's tar entries to dst. Non-directory
// entries (files, whiteouts, opaque whiteouts) are applied as they're
// encountered; directory entries are collected and applied last, in
// descending lexicographic order, so a restrictive parent permission
// is set only after every descendant it might otherwise block has
// already been written.
func unpackArchive(tr *tar.Reader, dst string, predicate Predicate) error {
	var directories []*tar.Header

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		cleaned := filepath.Clean("/" + header.Name)[1:]
		if cleaned == "" {
			continue
		}

		if header.Typeflag == tar.TypeDir {
			h := *header
			h.Name = cleaned
			directories = append(directories, &h)
			continue
		}

		name := filepath.Base(cleaned)
		parent := filepath.Dir(cleaned)

		switch {
		case name == ".wh..wh..opq":
			if err := removeChildren(filepath.Join(dst, parent)); err != nil {
				return err
			}

		case strings.HasPrefix(name, ".wh."):
			realName := strings.TrimPrefix(name, ".wh.")
			if err := removeWhiteout(filepath.Join(dst, parent, realName)); err != nil {
				return err
			}

		default:
			if !predicate(cleaned) {
				continue
			}
			if err := unpackEntry(tr, header, filepath.Join(dst, cleaned)); err != nil {
				return fmt.Errorf("unpacking %s: %w", cleaned, err)
			}
		}
	}

	sort.Slice(directories, func(i, j int) bool {
		return directories[i].Name > directories[j].Name
	})
	for _, h := range directories {
		if err := unpackDir(filepath.Join(dst, h.Name), h); err != nil {
			return fmt.Errorf("unpacking directory %s: %w", h.Name, err)
		}
	}

	return nil
}

// removeChildren implements the opaque whiteout (.wh..wh..opq):
// every pre-existing entry under dir, as applied by earlier layers,
// is removed before this layer's remaining entries are unpacked into
// it. dir not existing is not an error - nothing to clear.
func removeChildren(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// removeWhiteout removes the file or directory a whiteout entry marks
// as deleted. It may already be absent - an earlier filter predicate
// may have skipped unpacking it, or an opaque whiteout may already
// have removed it - and that is not an error.
func removeWhiteout(path string) error {
	err := os.RemoveAll(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func unpackEntry(tr *tar.Reader, header *tar.Header, full string) error {
	switch header.Typeflag {
	case tar.TypeSymlink:
		os.Remove(full)
		if err := os.Symlink(header.Linkname, full); err != nil {
			return err
		}
	case tar.TypeLink:
		os.Remove(full)
		if err := os.Link(filepath.Join(filepath.Dir(full), header.Linkname), full); err != nil {
			return err
		}
	default:
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode&0o7777))
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(f, tr)
		closeErr := f.Close()
		if copyErr != nil {
			return copyErr
		}
		if closeErr != nil {
			return closeErr
		}
		if err := os.Chmod(full, os.FileMode(header.Mode&0o7777)); err != nil {
			return err
		}
	}

	return setXattrs(full, header)
}

func unpackDir(full string, header *tar.Header) error {
	if err := os.MkdirAll(full, os.FileMode(header.Mode&0o7777)); err != nil {
		return err
	}
	if err := os.Chmod(full, os.FileMode(header.Mode&0o7777)); err != nil {
		return err
	}
	return setXattrs(full, header)
}
