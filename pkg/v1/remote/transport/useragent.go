// Copyright 2021 Google LLC All Rights Reserved.
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
	"net/http"
	"strings"
)

// transportName identifies this library in Authorization-less requests
// and forms the suffix of the default User-Agent string.
const transportName = "docker-registry-go"

var defaultUserAgent = transportName

// SetDefaultUserAgent sets the prefix applied to the User-Agent header
// of requests that don't otherwise set one via NewUserAgent.
func SetDefaultUserAgent(ua string) {
	defaultUserAgent = ua
}

type userAgentTransport struct {
	inner http.RoundTripper
	ua    string
}

// NewUserAgent returns a transport that sets the User-Agent header on
// every outgoing request to "ua transportName", falling back to the
// default set via SetDefaultUserAgent when ua is empty.
func NewUserAgent(inner http.RoundTripper, ua string) http.RoundTripper {
	if ua == "" {
		ua = defaultUserAgent
	}
	return &userAgentTransport{
		inner: inner,
		ua:    strings.TrimSpace(ua + " " + transportName),
	}
}

// RoundTrip implements http.RoundTripper.
func (u *userAgentTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	in = in.Clone(in.Context())
	in.Header.Set("User-Agent", u.ua)
	return u.inner.RoundTrip(in)
}
