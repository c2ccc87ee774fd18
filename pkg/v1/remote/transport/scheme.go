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

package transport

import (
	"net"
	"net/http"

	"github.com/pnxs/docker-registry-go/pkg/name"
)

// schemeTransport overrides a request's scheme to the one detected for
// registry during ping, leaving requests to any other host (e.g. a
// separate token server) untouched.
type schemeTransport struct {
	inner    http.RoundTripper
	registry name.Registry
	scheme   string
}

// RoundTrip implements http.RoundTripper.
func (st *schemeTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	in = in.Clone(in.Context())
	if in.URL.Host == st.registry.RegistryStr() {
		in.URL.Scheme = st.scheme
		in.URL.Host = canonicalAddress(in.URL.Host, st.scheme)
	}
	return st.inner.RoundTrip(in)
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

// canonicalAddress normalizes address so it always carries an explicit
// port, defaulting to scheme's standard port when one is missing, and
// bracketing bare IPv6 literals. Addresses it cannot confidently parse
// are returned unchanged.
func canonicalAddress(address, scheme string) string {
	host, port, err := net.SplitHostPort(address)
	if err == nil {
		if port != "" {
			return address
		}
		return net.JoinHostPort(host, defaultPort(scheme))
	}

	if ip := net.ParseIP(address); ip != nil {
		return net.JoinHostPort(address, defaultPort(scheme))
	}

	// Not host:port and not a bare IP. If there's no colon at all, it's
	// a bare hostname missing a port.
	hasColon := false
	for i := 0; i < len(address); i++ {
		if address[i] == ':' {
			hasColon = true
			break
		}
	}
	if !hasColon {
		return net.JoinHostPort(address, defaultPort(scheme))
	}

	return address
}
