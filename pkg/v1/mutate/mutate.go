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

// Package mutate provides facilities for generating new images/layers
// from existing ones.
package mutate

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/partial"
	"github.com/pnxs/docker-registry-go/pkg/v1/tarball"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

const whiteoutPrefix = ".wh."

// Addendum contains layers and history to be appended to an Image.
type Addendum struct {
	Layer       v1.Layer
	History     v1.History
	URLs        []string
	Annotations map[string]string
	MediaType   types.MediaType
}

// Append appends a list of addendums to the base image.
func Append(base v1.Image, adds ...Addendum) (v1.Image, error) {
	return AppendAddendum(base, adds...)
}

// AppendAddendum appends the given addendums to the base image, preserving
// existing layers and history.
func AppendAddendum(base v1.Image, adds ...Addendum) (v1.Image, error) {
	if len(adds) == 0 {
		return base, nil
	}
	if err := validateLayerAddenda(adds...); err != nil {
		return nil, err
	}

	m, err := base.Manifest()
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	manifest := m.DeepCopy()

	cf, err := base.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config file: %w", err)
	}
	cfg := cf.DeepCopy()

	img := &image{
		base:     base,
		manifest: manifest,
		config:   cfg,
		adds:     adds,
	}

	for _, add := range adds {
		img.diffIDMap = nil
		img.digestMap = nil
	}

	return img, nil
}

// AppendLayers applies layers to a base image.
func AppendLayers(base v1.Image, layers ...v1.Layer) (v1.Image, error) {
	additions := make([]Addendum, 0, len(layers))
	for _, layer := range layers {
		additions = append(additions, Addendum{Layer: layer})
	}
	return Append(base, additions...)
}

func validateLayerAddenda(adds ...Addendum) error {
	for _, add := range adds {
		if add.Layer == nil {
			return errors.New("mutate.Addendum.Layer must not be nil")
		}
	}
	return nil
}

// image represents a v1.Image lazily assembled atop a base image by
// layering one or more Addendum entries, or with its config mutated.
type image struct {
	base v1.Image

	manifest *v1.Manifest
	config   *v1.ConfigFile
	adds     []Addendum

	mediaType       *types.MediaType
	configMediaType *types.MediaType
	annotations     map[string]string

	computeOnce sync.Once
	computeErr  error

	layers    []v1.Layer
	diffIDMap map[v1.Hash]v1.Layer
	digestMap map[v1.Hash]v1.Layer
}

var _ v1.Image = (*image)(nil)

func (i *image) compute() error {
	i.computeOnce.Do(func() {
		i.computeErr = i.computeLocked()
	})
	return i.computeErr
}

func (i *image) computeLocked() error {
	baseLayers, err := i.base.Layers()
	if err != nil {
		return fmt.Errorf("get base layers: %w", err)
	}

	layers := append([]v1.Layer{}, baseLayers...)
	diffIDs := append([]v1.Hash{}, i.config.RootFS.DiffIDs...)
	history := append([]v1.History{}, i.config.History...)
	descs := append([]v1.Descriptor{}, i.manifest.Layers...)

	for _, add := range i.adds {
		layers = append(layers, add.Layer)

		diffID, err := add.Layer.DiffID()
		if err != nil {
			return fmt.Errorf("get diff ID: %w", err)
		}
		diffIDs = append(diffIDs, diffID)

		history = append(history, add.History)

		mt, err := add.Layer.MediaType()
		if err != nil {
			return fmt.Errorf("get media type: %w", err)
		}
		if add.MediaType != "" {
			mt = add.MediaType
		}
		digest, err := add.Layer.Digest()
		if err != nil {
			return fmt.Errorf("get digest: %w", err)
		}
		size, err := add.Layer.Size()
		if err != nil {
			return fmt.Errorf("get size: %w", err)
		}
		descs = append(descs, v1.Descriptor{
			MediaType:   mt,
			Size:        size,
			Digest:      digest,
			URLs:        add.URLs,
			Annotations: add.Annotations,
		})
	}

	i.config.RootFS.DiffIDs = diffIDs
	i.config.History = history
	i.manifest.Layers = descs
	i.layers = layers

	i.diffIDMap = map[v1.Hash]v1.Layer{}
	i.digestMap = map[v1.Hash]v1.Layer{}
	for _, l := range layers {
		if diffID, err := l.DiffID(); err == nil {
			i.diffIDMap[diffID] = l
		}
		if digest, err := l.Digest(); err == nil {
			i.digestMap[digest] = l
		}
	}
	return nil
}

func (i *image) Layers() ([]v1.Layer, error) {
	if err := i.compute(); err != nil {
		return nil, err
	}
	return i.layers, nil
}

func (i *image) MediaType() (types.MediaType, error) {
	if i.mediaType != nil {
		return *i.mediaType, nil
	}
	return i.manifest.MediaType, nil
}

func (i *image) Size() (int64, error) { return partial.Size(i) }

func (i *image) ConfigName() (v1.Hash, error) { return partial.ConfigName(i) }

func (i *image) ConfigFile() (*v1.ConfigFile, error) {
	if err := i.compute(); err != nil {
		return nil, err
	}
	return i.config, nil
}

func (i *image) RawConfigFile() ([]byte, error) {
	cf, err := i.ConfigFile()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(cf)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Compact(&out, b); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (i *image) Digest() (v1.Hash, error) { return partial.Digest(i) }

func (i *image) Manifest() (*v1.Manifest, error) {
	if err := i.compute(); err != nil {
		return nil, err
	}

	raw, err := i.RawConfigFile()
	if err != nil {
		return nil, err
	}
	digest, size, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	i.manifest.Config.Digest = digest
	i.manifest.Config.Size = size
	if i.configMediaType != nil {
		i.manifest.Config.MediaType = *i.configMediaType
	} else if i.manifest.Config.MediaType == "" {
		i.manifest.Config.MediaType = types.DockerConfigJSON
	}

	if i.mediaType != nil {
		i.manifest.MediaType = *i.mediaType
	}
	if i.annotations != nil {
		if i.manifest.Annotations == nil {
			i.manifest.Annotations = map[string]string{}
		}
		for k, v := range i.annotations {
			i.manifest.Annotations[k] = v
		}
	}

	return i.manifest, nil
}

func (i *image) RawManifest() ([]byte, error) { return partial.RawManifest(i) }

func (i *image) LayerByDigest(h v1.Hash) (v1.Layer, error) {
	if err := i.compute(); err != nil {
		return nil, err
	}
	if cfgName, err := i.ConfigName(); err == nil && cfgName == h {
		return partial.ConfigLayer(i)
	}
	if l, ok := i.digestMap[h]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("unknown digest %v", h)
}

func (i *image) LayerByDiffID(h v1.Hash) (v1.Layer, error) {
	if err := i.compute(); err != nil {
		return nil, err
	}
	if l, ok := i.diffIDMap[h]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("unknown diffID %v", h)
}

// Config mutates the config of a base image to the given v1.Config.
func Config(base v1.Image, cfg v1.Config) (v1.Image, error) {
	cf, err := base.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config file: %w", err)
	}
	newConfig := cf.DeepCopy()
	newConfig.Config = cfg
	return ConfigFile(base, newConfig)
}

// ConfigFile mutates the config file of a base image to the given
// v1.ConfigFile.
func ConfigFile(base v1.Image, cfg *v1.ConfigFile) (v1.Image, error) {
	m, err := base.Manifest()
	if err != nil {
		return nil, fmt.Errorf("get manifest: %w", err)
	}
	manifest := m.DeepCopy()

	img := &image{
		base:     base,
		manifest: manifest,
		config:   cfg.DeepCopy(),
	}
	return img, nil
}

// CreatedAt mutates the creation time of an image to the given v1.Time.
func CreatedAt(base v1.Image, created v1.Time) (v1.Image, error) {
	cf, err := base.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config file: %w", err)
	}
	cfg := cf.DeepCopy()
	cfg.Created = created
	return ConfigFile(base, cfg)
}

// Time sets all timestamps in an image to the given timestamp.
func Time(base v1.Image, t time.Time) (v1.Image, error) {
	newImage := empty()

	layers, err := base.Layers()
	if err != nil {
		return nil, fmt.Errorf("get layers: %w", err)
	}

	newLayers := make([]v1.Layer, len(layers))
	for idx, layer := range layers {
		newLayer, err := layerTime(layer, t)
		if err != nil {
			return nil, fmt.Errorf("setting layer timestamp: %w", err)
		}
		newLayers[idx] = newLayer
	}

	newImage, err = AppendLayers(newImage, newLayers...)
	if err != nil {
		return nil, fmt.Errorf("appending layers: %w", err)
	}

	cf, err := base.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config file: %w", err)
	}
	cfg := cf.DeepCopy()
	cfg.Created = v1.Time{Time: t}
	for i, h := range cfg.History {
		h.Created = v1.Time{Time: t}
		cfg.History[i] = h
	}
	return ConfigFile(newImage, cfg)
}

func empty() v1.Image {
	return &image{
		base:     nil,
		manifest: &v1.Manifest{SchemaVersion: 2, MediaType: types.DockerManifestSchema2},
		config:   &v1.ConfigFile{RootFS: v1.RootFS{Type: "layers"}},
	}
}

// Annotations mutates the annotations on an Image or ImageIndex, whatever
// its media type. Any other input is returned unchanged.
func Annotations(f partial.WithRawManifest, annotations map[string]string) partial.WithRawManifest {
	switch i := f.(type) {
	case v1.Image:
		img := toImage(i)
		if img.annotations == nil {
			img.annotations = map[string]string{}
		}
		for k, v := range annotations {
			img.annotations[k] = v
		}
		return img
	case v1.ImageIndex:
		return IndexAnnotations(i, annotations)
	default:
		return f
	}
}

func toImage(base v1.Image) *image {
	if img, ok := base.(*image); ok {
		clone := *img
		return &clone
	}
	i, err := ConfigFile(base, mustConfigFile(base))
	if err != nil {
		return &image{base: base}
	}
	return i.(*image)
}

func mustConfigFile(base v1.Image) *v1.ConfigFile {
	cf, err := base.ConfigFile()
	if err != nil || cf == nil {
		return &v1.ConfigFile{}
	}
	return cf.DeepCopy()
}

// IndexAnnotations mutates the annotations on an ImageIndex.
func IndexAnnotations(base v1.ImageIndex, annotations map[string]string) v1.ImageIndex {
	idx := asIndex(base)
	if idx.manifest == nil {
		m, err := base.IndexManifest()
		if err == nil {
			idx.manifest = m
			idx.computed = true
		}
	}
	if idx.manifest != nil {
		if idx.manifest.Annotations == nil {
			idx.manifest.Annotations = map[string]string{}
		}
		for k, v := range annotations {
			idx.manifest.Annotations[k] = v
		}
	}
	return idx
}

// MediaType sets the media type of an Image or ImageIndex.
func MediaType(f partial.WithRawManifest, mt types.MediaType) partial.WithRawManifest {
	switch i := f.(type) {
	case v1.Image:
		img := toImage(i)
		img.mediaType = &mt
		return img
	case v1.ImageIndex:
		return IndexMediaType(i, mt)
	default:
		return f
	}
}

// ConfigMediaType sets the media type of an Image's config file.
func ConfigMediaType(base v1.Image, mt types.MediaType) v1.Image {
	img := toImage(base)
	img.configMediaType = &mt
	return img
}

// Canonical is a helper function to set all mutable fields specific to
// an image to uniform values so that the image contents are comparable.
func Canonical(img v1.Image) (v1.Image, error) {
	cf, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config file: %w", err)
	}
	cfg := cf.DeepCopy()

	cfg.Created = v1.Time{}
	cfg.Container = ""
	cfg.Config.Hostname = ""
	cfg.ContainerConfig.Hostname = ""
	cfg.DockerVersion = ""

	img, err = ConfigFile(img, cfg)
	if err != nil {
		return nil, err
	}

	return Time(img, time.Unix(0, 0))
}

func layerTime(layer v1.Layer, t time.Time) (v1.Layer, error) {
	oldReader, err := layer.Uncompressed()
	if err != nil {
		return nil, fmt.Errorf("getting layer: %w", err)
	}
	bs, err := tarWithModTime(oldReader, t)
	if err != nil {
		return nil, fmt.Errorf("rewriting layer: %w", err)
	}
	layerOpener := func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(bs)), nil
	}
	newLayer, err := tarball.LayerFromOpener(layerOpener)
	if err != nil {
		return nil, fmt.Errorf("creating layer: %w", err)
	}
	return newLayer, nil
}

// tarWithModTime reads the tar stream from r, closing it, and returns the
// raw bytes of an equivalent tar stream with every header's ModTime set to
// t.
func tarWithModTime(r io.ReadCloser, t time.Time) ([]byte, error) {
	defer r.Close()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		hdr.ModTime = t
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := io.Copy(tw, tr); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
