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
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pnxs/docker-registry-go/pkg/logs"
)

// Mirror redirects requests whose host or path matches OriginUrl to one
// of MirrorEndpoints instead, tried in order until one round-trips
// successfully.
type Mirror struct {
	OriginUrl       string
	MirrorEndpoints []MirrorEndpoint
}

// MirrorEndpoint is one candidate destination for a Mirror, with Secure
// controlling whether requests to it are forced to https or http.
type MirrorEndpoint struct {
	Endpoint string
	Secure   bool
}

type mirrorTransport struct {
	inner   http.RoundTripper
	mirrors []Mirror
}

var _ http.RoundTripper = (*mirrorTransport)(nil)

// NewWithMirrors wraps inner so that requests matching one of mirrors
// are redirected to that mirror's endpoints before falling back to the
// original request.
func NewWithMirrors(inner http.RoundTripper, mirrors []Mirror) http.RoundTripper {
	return &mirrorTransport{
		inner:   inner,
		mirrors: mirrors,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *mirrorTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	for _, mirror := range t.mirrors {
		isApplicable, err := mirror.isApplicableTo(*in.URL)
		if err != nil {
			logs.Warn.Printf("mirror %q: %v", mirror.OriginUrl, err)
			continue
		}
		if !isApplicable {
			continue
		}
		for _, endpoint := range mirror.MirrorEndpoints {
			mirroredRequest, err := mirror.useMirrorEndpoint(in, endpoint)
			if err != nil {
				logs.Warn.Printf("building request for mirror %q: %v", endpoint.Endpoint, err)
				continue
			}
			out, err := t.inner.RoundTrip(mirroredRequest)
			if err != nil {
				logs.Debug.Printf("mirror %q failed, trying next: %v", endpoint.Endpoint, err)
				continue
			}
			return out, nil
		}
	}
	return t.inner.RoundTrip(in)
}

func (m Mirror) isApplicableTo(u url.URL) (bool, error) {
	mirrorUrl, err := url.Parse(m.OriginUrl)
	if err != nil {
		return false, fmt.Errorf("unable to parse mirror origin url %s: %w", m.OriginUrl, err)
	}
	if strings.Contains(u.Host, mirrorUrl.Host) || strings.Contains(u.Path, mirrorUrl.Path) {
		return true, nil
	}
	return false, nil
}

func (m Mirror) useMirrorEndpoint(in *http.Request, mirrorEndpoint MirrorEndpoint) (*http.Request, error) {
	mirrorUrl, err := url.Parse(m.OriginUrl)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mirror origin url %s: %w", m.OriginUrl, err)
	}
	mirrorEndpointUrl, err := url.Parse(mirrorEndpoint.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mirror endpoint %s: %w", mirrorEndpoint.Endpoint, err)
	}

	mirroredIn := in.Clone(in.Context())
	inURL := in.URL.String()
	inURL = strings.Replace(inURL, mirrorUrl.Host, mirrorEndpointUrl.Host, 1)
	inURL = strings.Replace(inURL, mirrorUrl.Path, mirrorEndpointUrl.Path, 1)
	if in.URL.Scheme == "https" && !mirrorEndpoint.Secure {
		inURL = strings.Replace(inURL, "https", "http", 1)
	}
	if in.URL.Scheme == "http" && mirrorEndpoint.Secure {
		inURL = strings.Replace(inURL, "http", "https", 1)
	}
	mirroredRequestURL, err := url.Parse(inURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mirror endpoint %s: %w", mirrorEndpoint.Endpoint, err)
	}
	mirroredIn.URL = mirroredRequestURL
	logs.Debug.Printf("using %s as mirror of %s", mirroredIn.URL, in.URL)
	return mirroredIn, nil
}
