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
	"net/http"

	"github.com/pnxs/docker-registry-go/pkg/authn"
)

// basicTransport sets the Authorization header on requests bound for
// target, using auth's credentials. It never attaches credentials to a
// request that has been redirected to a different host.
type basicTransport struct {
	inner  http.RoundTripper
	auth   authn.Authenticator
	target string
}

// RoundTrip implements http.RoundTripper.
func (bt *basicTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	in = in.Clone(in.Context())
	if in.URL.Host == bt.target {
		auth, err := bt.auth.Authorization()
		if err != nil {
			return nil, err
		}

		switch {
		case auth.RegistryToken != "":
			in.Header.Set("Authorization", "Bearer "+auth.RegistryToken)
		case auth.Auth != "":
			in.Header.Set("Authorization", "Basic "+auth.Auth)
		case auth.Username != "" || auth.Password != "":
			in.SetBasicAuth(auth.Username, auth.Password)
		}
	}
	in.Header.Set("User-Agent", transportName)
	return bt.inner.RoundTrip(in)
}
