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

package v1

import (
	"encoding/json"
	"io"
	"time"
)

// Config is the execution parameters which should be used as a base
// when running a container using an image, the "config" object of the
// OCI/Docker image config JSON blob referenced from a Schema2/OCI
// manifest.
type Config struct {
	Hostname     string               `json:"Hostname,omitempty"`
	Cmd          []string             `json:"Cmd,omitempty"`
	Entrypoint   []string             `json:"Entrypoint,omitempty"`
	Env          []string             `json:"Env,omitempty"`
	User         string               `json:"User,omitempty"`
	WorkingDir   string               `json:"WorkingDir,omitempty"`
	ExposedPorts map[string]struct{}  `json:"ExposedPorts,omitempty"`
	Volumes      map[string]struct{}  `json:"Volumes,omitempty"`
	Labels       map[string]string    `json:"Labels,omitempty"`
	StopSignal   string               `json:"StopSignal,omitempty"`
	ArgsEscaped  bool                 `json:"ArgsEscaped,omitempty"`
}

// History is one entry of a config file's build history, paired
// positionally with the image's non-empty layers.
type History struct {
	Author     string    `json:"author,omitempty"`
	Created    Time      `json:"created,omitempty"`
	CreatedBy  string    `json:"created_by,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	EmptyLayer bool      `json:"empty_layer,omitempty"`
}

// Time is a wrapper around time.Time to allow for deterministic JSON
// round-tripping even in the presence of a zero value.
type Time struct {
	time.Time
}

// MarshalJSON implements json.Marshaler, writing the zero value as
// "0001-01-01T00:00:00Z" and any other value in UTC.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`"0001-01-01T00:00:00Z"`), nil
	}
	return json.Marshal(t.Time.UTC())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s time.Time
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t.Time = s
	return nil
}

// RootFS holds the ordered list of layer digests composing an image's
// filesystem, and their stacking order.
type RootFS struct {
	Type    string `json:"type"`
	DiffIDs []Hash `json:"diff_ids"`
}

// ConfigFile is the JSON structure referenced by a Schema2 or OCI
// manifest's config descriptor.
type ConfigFile struct {
	Architecture    string    `json:"architecture,omitempty"`
	Author          string    `json:"author,omitempty"`
	Container       string    `json:"container,omitempty"`
	Created         Time      `json:"created,omitempty"`
	DockerVersion   string    `json:"docker_version,omitempty"`
	History         []History `json:"history,omitempty"`
	OS              string    `json:"os,omitempty"`
	OSVersion       string    `json:"os.version,omitempty"`
	RootFS          RootFS    `json:"rootfs"`
	Config          Config    `json:"config"`
	ContainerConfig Config    `json:"container_config,omitempty"`
	Variant         string    `json:"variant,omitempty"`
}

// ParseConfigFile parses the io.Reader's contents into a ConfigFile.
func ParseConfigFile(r io.Reader) (*ConfigFile, error) {
	cf := ConfigFile{}
	if err := json.NewDecoder(r).Decode(&cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Platform derives the Platform that an image built from this config
// file targets.
func (cf *ConfigFile) Platform() *Platform {
	if cf.OS == "" && cf.Architecture == "" {
		return nil
	}
	return &Platform{
		Architecture: cf.Architecture,
		OS:           cf.OS,
		OSVersion:    cf.OSVersion,
		Variant:      cf.Variant,
	}
}

// DeepCopy returns a deep copy of the ConfigFile.
func (cf *ConfigFile) DeepCopy() *ConfigFile {
	out := *cf
	out.Config = cf.Config.DeepCopy()
	out.ContainerConfig = cf.ContainerConfig.DeepCopy()
	out.History = make([]History, len(cf.History))
	copy(out.History, cf.History)
	out.RootFS.DiffIDs = make([]Hash, len(cf.RootFS.DiffIDs))
	copy(out.RootFS.DiffIDs, cf.RootFS.DiffIDs)
	return &out
}

// DeepCopy returns a deep copy of the Config.
func (c Config) DeepCopy() Config {
	out := c
	if c.Cmd != nil {
		out.Cmd = append([]string{}, c.Cmd...)
	}
	if c.Entrypoint != nil {
		out.Entrypoint = append([]string{}, c.Entrypoint...)
	}
	if c.Env != nil {
		out.Env = append([]string{}, c.Env...)
	}
	if c.ExposedPorts != nil {
		out.ExposedPorts = make(map[string]struct{}, len(c.ExposedPorts))
		for k, v := range c.ExposedPorts {
			out.ExposedPorts[k] = v
		}
	}
	if c.Volumes != nil {
		out.Volumes = make(map[string]struct{}, len(c.Volumes))
		for k, v := range c.Volumes {
			out.Volumes[k] = v
		}
	}
	if c.Labels != nil {
		out.Labels = make(map[string]string, len(c.Labels))
		for k, v := range c.Labels {
			out.Labels[k] = v
		}
	}
	return out
}
