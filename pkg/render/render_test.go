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

package render

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

// buildLayer gzip-compresses a tar archive containing the given
// entries, in order. A nil body means a directory entry.
func buildLayer(t *testing.T, entries map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, name := range order {
		body := entries[name]
		if body == nil {
			if err := tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(body); err != nil {
			t.Fatal(err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUnpackBasic(t *testing.T) {
	dir := t.TempDir()

	layer := buildLayer(t, map[string][]byte{
		"a/":     nil,
		"a/b.txt": []byte("hello"),
	}, []string{"a/", "a/b.txt"})

	if err := Unpack([][]byte{layer}, dir); err != nil {
		t.Fatal("Unpack() =", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want %q", got, "hello")
	}
}

func TestUnpackWhiteout(t *testing.T) {
	dir := t.TempDir()

	base := buildLayer(t, map[string][]byte{
		"a/":      nil,
		"a/b.txt": []byte("base"),
		"a/c.txt": []byte("kept"),
	}, []string{"a/", "a/b.txt", "a/c.txt"})

	overlay := buildLayer(t, map[string][]byte{
		"a/.wh.b.txt": []byte{},
	}, []string{"a/.wh.b.txt"})

	if err := Unpack([][]byte{base, overlay}, dir); err != nil {
		t.Fatal("Unpack() =", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "a", "b.txt")); !os.IsNotExist(err) {
		t.Errorf("a/b.txt: stat err = %v, want IsNotExist", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a", "c.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "kept" {
		t.Errorf("a/c.txt content = %q, want %q", got, "kept")
	}
}

func TestUnpackOpaqueWhiteout(t *testing.T) {
	dir := t.TempDir()

	base := buildLayer(t, map[string][]byte{
		"a/":      nil,
		"a/b.txt": []byte("base"),
		"a/c.txt": []byte("base"),
	}, []string{"a/", "a/b.txt", "a/c.txt"})

	overlay := buildLayer(t, map[string][]byte{
		"a/":             nil,
		"a/.wh..wh..opq": []byte{},
		"a/d.txt":        []byte("new"),
	}, []string{"a/", "a/.wh..wh..opq", "a/d.txt"})

	if err := Unpack([][]byte{base, overlay}, dir); err != nil {
		t.Fatal("Unpack() =", err)
	}

	for _, removed := range []string{"b.txt", "c.txt"} {
		if _, err := os.Stat(filepath.Join(dir, "a", removed)); !os.IsNotExist(err) {
			t.Errorf("a/%s: stat err = %v, want IsNotExist", removed, err)
		}
	}
	got, err := os.ReadFile(filepath.Join(dir, "a", "d.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("a/d.txt content = %q, want %q", got, "new")
	}
}

func TestUnpackRestrictiveParentPermissions(t *testing.T) {
	dir := t.TempDir()

	// Mark the outer directory with a restrictive mode in the archive;
	// if it were applied before its descendants were written, the
	// unpack of a/b/c.txt would fail.
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	hdrs := []*tar.Header{
		{Name: "a/b/c.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: 4},
		{Name: "a/b/", Typeflag: tar.TypeDir, Mode: 0o755},
		{Name: "a/", Typeflag: tar.TypeDir, Mode: 0o700},
	}
	for _, h := range hdrs {
		if err := tw.WriteHeader(h); err != nil {
			t.Fatal(err)
		}
		if h.Typeflag == tar.TypeReg {
			tw.Write([]byte("deep"))
		}
	}
	tw.Close()
	gw.Close()

	if err := Unpack([][]byte{buf.Bytes()}, dir); err != nil {
		t.Fatal("Unpack() =", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "a", "b", "c.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q, want %q", got, "deep")
	}
}

func TestUnpackFilterPredicate(t *testing.T) {
	dir := t.TempDir()

	layer := buildLayer(t, map[string][]byte{
		"keep.txt": []byte("yes"),
		"skip.txt": []byte("no"),
	}, []string{"keep.txt", "skip.txt"})

	if err := FilterUnpack([][]byte{layer}, dir, func(path string) bool {
		return path == "keep.txt"
	}); err != nil {
		t.Fatal("FilterUnpack() =", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "keep.txt")); err != nil {
		t.Errorf("keep.txt: stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "skip.txt")); !os.IsNotExist(err) {
		t.Errorf("skip.txt: stat err = %v, want IsNotExist", err)
	}
}

func TestUnpackWrongTarget(t *testing.T) {
	if err := Unpack(nil, "relative/path"); err != ErrWrongTarget {
		t.Errorf("Unpack() err = %v, want ErrWrongTarget", err)
	}

	if err := Unpack(nil, filepath.Join(t.TempDir(), "does-not-exist")); err != ErrWrongTarget {
		t.Errorf("Unpack() err = %v, want ErrWrongTarget", err)
	}
}
