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

package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"

	"github.com/pnxs/docker-registry-go/pkg/authn"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote/transport"
)

// Option is a functional option for remote operations.
type Option func(*options)

type options struct {
	auth      authn.Authenticator
	keychain  authn.Keychain
	transport http.RoundTripper
	context   context.Context
	platform  v1.Platform
	userAgent string
	jobs      int
	filter    map[string]string
}

var defaultPlatformOption = v1.Platform{
	Architecture: "amd64",
	OS:           "linux",
}

const (
	defaultJobs      = 4
	defaultUserAgent = "docker-registry-go/v1"
)

// makeOptions resolves opts against target, so that a target constructed
// with name.Insecure can disable certificate verification on the
// resulting transport even when no explicit WithTransport was given.
func makeOptions(target resource, opts ...Option) (*options, error) {
	o := &options{
		auth:      authn.Anonymous,
		transport: http.DefaultTransport,
		context:   context.Background(),
		platform:  defaultPlatformOption,
		jobs:      defaultJobs,
		userAgent: defaultUserAgent,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.keychain != nil && o.auth != authn.Anonymous {
		return nil, errors.New("provide WithAuth or WithAuthFromKeychain, not both")
	}

	if target != nil && target.Scheme() == "http" {
		if _, ok := o.transport.(*http.Transport); ok || o.transport == http.DefaultTransport {
			base, ok := http.DefaultTransport.(*http.Transport)
			if !ok {
				base = &http.Transport{}
			}
			clone := base.Clone()
			clone.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
			o.transport = clone
		}
	}

	if _, ok := o.transport.(*transport.Wrapper); !ok {
		o.transport = transport.NewUserAgent(o.transport, o.userAgent)
	}

	return o, nil
}

// WithTransport is used to set the http.RoundTripper that issues the
// requests, replacing http.DefaultTransport.
func WithTransport(t http.RoundTripper) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithAuth sets the authenticator used for requests, replacing the
// anonymous authenticator.
func WithAuth(auth authn.Authenticator) Option {
	return func(o *options) {
		o.auth = auth
	}
}

// WithAuthFromKeychain resolves the authenticator once the target
// repository or registry is known, by way of the given keychain.
func WithAuthFromKeychain(keys authn.Keychain) Option {
	return func(o *options) {
		o.keychain = keys
	}
}

// WithContext sets the context used for all requests and for
// cancellation of paginated operations.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.context = ctx
	}
}

// WithPlatform sets the platform used to resolve a multi-platform index
// down to a single image, replacing linux/amd64.
func WithPlatform(p v1.Platform) Option {
	return func(o *options) {
		o.platform = p
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithJobs bounds the parallelism of batch operations such as MultiDelete.
func WithJobs(jobs int) Option {
	return func(o *options) {
		if jobs > 0 {
			o.jobs = jobs
		}
	}
}

// WithFilter sets the filter applied by Referrers, e.g.
// WithFilter("artifactType", "application/vnd.example+type") restricts
// the returned index to referrers of that artifact type.
func WithFilter(key, value string) Option {
	return func(o *options) {
		if o.filter == nil {
			o.filter = map[string]string{}
		}
		o.filter[key] = value
	}
}
