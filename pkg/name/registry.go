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

import (
	"net"
	"strings"
)

// DefaultRegistry is the registry used when a reference names none,
// i.e. the public index host.
const DefaultRegistry = "index.docker.io"

// Registry is an HTTP endpoint that implements the OCI Distribution API.
type Registry struct {
	registry string
	insecure bool
}

// RegistryStr returns the registry's host[:port], suitable for building
// a URL or using as a map key.
func (r Registry) RegistryStr() string {
	return r.registry
}

// String implements fmt.Stringer; it returns RegistryStr().
func (r Registry) String() string {
	return r.RegistryStr()
}

// Scheme returns "http" if the registry was constructed as insecure,
// or if its host is a loopback or RFC 1918 private IPv4 address, else
// "https". A "localhost" host name gets "https" unless the registry is
// insecure.
func (r Registry) Scheme() string {
	if r.insecure {
		return "http"
	}
	if r.isRFC1918() {
		return "http"
	}
	return "https"
}

// isRFC1918 reports whether the registry's host is a loopback or
// private-use IPv4 address, per RFC 1918, which never has a publicly
// trusted TLS certificate.
func (r Registry) isRFC1918() bool {
	host := r.registry
	if h, _, err := net.SplitHostPort(r.registry); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return false
	}
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// looksLikeHost reports whether the first path segment s names a
// registry host, per the reference grammar's HOST-detection heuristic:
// it is exactly "localhost", starts with "localhost:", or contains a
// dot or a colon.
func looksLikeHost(s string) bool {
	if s == "localhost" || strings.HasPrefix(s, "localhost:") {
		return true
	}
	return strings.ContainsAny(s, ".:")
}

// NewRegistry validates that the given string is a valid registry and
// returns a Registry object.
func NewRegistry(name string, opts ...Option) (Registry, error) {
	o := makeOptions(opts...)
	if o.strict && len(name) == 0 {
		return Registry{}, newErrBadName("strict validation requires the registry to be explicitly defined")
	}
	if name == "" {
		name = DefaultRegistry
	}
	return Registry{registry: name, insecure: o.insecure}, nil
}

// NewInsecureRegistry is like NewRegistry but the returned Registry
// speaks plain HTTP.
func NewInsecureRegistry(name string, opts ...Option) (Registry, error) {
	reg, err := NewRegistry(name, append(opts, Insecure)...)
	if err != nil {
		return Registry{}, err
	}
	return reg, nil
}

// Insecure returns a copy of r that speaks plain HTTP instead of HTTPS,
// for use against registries that don't terminate TLS.
func (r Registry) Insecure() Registry {
	r.insecure = true
	return r
}
