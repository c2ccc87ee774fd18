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

// Package transport implements the authentication and scheme-detection
// machinery used to talk to a registry's HTTP API.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pnxs/docker-registry-go/pkg/authn"
	"github.com/pnxs/docker-registry-go/pkg/name"
)

// Scopes used in the Scope field of a resource's auth request, per the
// distribution spec's token scope grammar.
const (
	PullScope    = "pull"
	PushScope    = "push,pull"
	DeleteScope  = "*"
	CatalogScope = "catalog"
)

// resource is the subset of name.Registry/name.Repository/name.Digest
// that the transport package needs to build scoped auth requests.
type resource interface {
	Scheme() string
	RegistryStr() string
	Scope(string) string

	authn.Resource
}

// Wrapper wraps a RoundTripper so that it's identifiable as having
// already been run through NewWithContext, to avoid re-wrapping it.
type Wrapper struct {
	inner http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (w *Wrapper) RoundTrip(in *http.Request) (*http.Response, error) {
	return w.inner.RoundTrip(in)
}

// cache stores small blobs (ping results, tokens) keyed by string, used
// to avoid repeating a ping or token exchange across process runs.
type cache interface {
	Get(key string) ([]byte, error)
	Put(key string, b []byte) error
}

var credCache cache

func init() {
	c, err := getCache()
	if err == nil {
		credCache = c
	}
}

// New returns an http.RoundTripper that authenticates requests to reg
// scoped to scopes, detecting the registry's preferred scheme and auth
// mechanism via a ping request.
func New(reg name.Registry, auth authn.Authenticator, t http.RoundTripper, scopes []string) (http.RoundTripper, error) {
	return NewWithContext(context.Background(), reg, auth, t, scopes)
}

// NewWithContext is like New, but the ping request it issues to detect
// the registry's scheme and auth mechanism honors ctx.
func NewWithContext(ctx context.Context, reg name.Registry, auth authn.Authenticator, t http.RoundTripper, scopes []string) (http.RoundTripper, error) {
	if _, ok := t.(*Wrapper); ok {
		return t, nil
	}

	pr, err := ping(ctx, reg, t)
	if err != nil {
		return nil, err
	}

	// schemeTransport carries the scheme detected by ping, so that it's
	// applied to every later request to reg regardless of which auth
	// transport ends up wrapping it.
	st := &schemeTransport{scheme: pr.Scheme, registry: reg, inner: t}

	auther, err := authFromPing(pr, auth, reg, st, scopes)
	if err != nil {
		return nil, err
	}

	return &Wrapper{inner: auther}, nil
}

func authFromPing(pr *PingResponse, auth authn.Authenticator, reg name.Registry, t http.RoundTripper, scopes []string) (http.RoundTripper, error) {
	switch pr.Challenge.Canonical() {
	case anonymous:
		return &basicTransport{inner: t, auth: authn.Anonymous, target: reg.RegistryStr()}, nil
	case basic:
		return &basicTransport{inner: t, auth: auth, target: reg.RegistryStr()}, nil
	case bearer:
		realm, ok := pr.Parameters["realm"]
		if !ok {
			return nil, errors.New("malformed www-authenticate, missing realm")
		}
		service := pr.Parameters["service"]
		bt := &bearerTransport{
			inner:    t,
			basic:    auth,
			registry: reg,
			realm:    realm,
			scopes:   scopes,
			service:  service,
			scheme:   pr.Scheme,
		}
		if err := bt.refresh(context.Background()); err != nil {
			return nil, err
		}
		return bt, nil
	default:
		return nil, fmt.Errorf("unrecognized challenge %s", pr.Challenge)
	}
}
