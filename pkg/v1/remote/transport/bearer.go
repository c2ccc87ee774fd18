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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/pnxs/docker-registry-go/pkg/authn"
	"github.com/pnxs/docker-registry-go/pkg/name"
)

// bearerTransport attaches bearer tokens obtained from realm to
// requests bound for registry, refreshing them from basic when the
// registry responds with 401.
type bearerTransport struct {
	inner    http.RoundTripper
	basic    authn.Authenticator
	bearer   authn.AuthConfig
	registry name.Registry
	realm    string
	scopes   []string
	service  string
	scheme   string
}

var _ http.RoundTripper = (*bearerTransport)(nil)

// tokenResponse is the distribution spec's token endpoint response
// body, accepting either the "token" or legacy "access_token" key, and
// an optional rotated "refresh_token" for oauth2-style exchanges.
type tokenResponse struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RoundTrip implements http.RoundTripper.
func (bt *bearerTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	sendRequest := func() (*http.Response, error) {
		in2 := in.Clone(in.Context())
		if in2.URL.Host == bt.registry.RegistryStr() && bt.bearer.RegistryToken != "" {
			in2.Header.Set("Authorization", "Bearer "+bt.bearer.RegistryToken)
		}
		in2.Header.Set("User-Agent", transportName)
		return bt.inner.RoundTrip(in2)
	}

	res, err := sendRequest()
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized {
		for _, c := range parseAuthHeader(res.Header) {
			if scope, ok := c.Parameters["scope"]; ok && scope != "" {
				bt.scopes = addScope(bt.scopes, scope)
			}
		}
		res.Body.Close()

		if err := bt.refresh(in.Context()); err != nil {
			return nil, err
		}
		return sendRequest()
	}

	return res, nil
}

func addScope(scopes []string, scope string) []string {
	for _, s := range scopes {
		if s == scope {
			return scopes
		}
	}
	return append(scopes, scope)
}

// refresh exchanges bt.basic's credentials for a new bearer token,
// preferring an already-populated RegistryToken, then an oauth2
// refresh_token exchange, and finally the distribution spec's basic
// GET-based token flow.
func (bt *bearerTransport) refresh(ctx context.Context) error {
	auth, err := bt.basic.Authorization()
	if err != nil {
		return err
	}

	if auth.RegistryToken != "" {
		bt.bearer.RegistryToken = auth.RegistryToken
		return nil
	}

	if auth.IdentityToken != "" {
		err := bt.refreshOauth(ctx, auth)
		if err == nil {
			return nil
		}
		var terr *Error
		if !errors.As(err, &terr) || terr.StatusCode != http.StatusNotFound {
			return err
		}
		// The token server doesn't support the oauth2 flow; fall back to
		// the basic GET-based flow below.
	}

	return bt.refreshBasic(ctx, auth)
}

// refreshOauth performs an oauth2 refresh_token grant against bt.realm.
func (bt *bearerTransport) refreshOauth(ctx context.Context, auth *authn.AuthConfig) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", auth.IdentityToken)
	if bt.service != "" {
		form.Set("service", bt.service)
	}
	for _, scope := range bt.scopes {
		form.Add("scope", scope)
	}

	req, err := http.NewRequest(http.MethodPost, bt.realm, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := http.Client{Transport: bt.inner}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckError(resp, http.StatusOK); err != nil {
		return err
	}
	return bt.bearerFromResponse(resp)
}

// refreshBasic performs the distribution spec's basic, GET-based token
// exchange against bt.realm, authenticating with auth's credentials.
func (bt *bearerTransport) refreshBasic(ctx context.Context, auth *authn.AuthConfig) error {
	u, err := url.Parse(bt.realm)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, bt.realm, nil)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)

	q := req.URL.Query()
	for _, scope := range bt.scopes {
		q.Add("scope", scope)
	}
	if bt.service != "" {
		q.Set("service", bt.service)
	}
	req.URL.RawQuery = q.Encode()

	client := http.Client{Transport: &basicTransport{
		inner:  bt.inner,
		auth:   authn.FromConfig(*auth),
		target: u.Host,
	}}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckError(resp, http.StatusOK); err != nil {
		return err
	}
	return bt.bearerFromResponse(resp)
}

func (bt *bearerTransport) bearerFromResponse(resp *http.Response) error {
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return err
	}

	token := tr.Token
	if token == "" {
		token = tr.AccessToken
	}
	if token == "" {
		return errors.New("no token found in response body")
	}

	bt.bearer.RegistryToken = token
	if tr.RefreshToken != "" {
		bt.basic = authn.FromConfig(authn.AuthConfig{IdentityToken: tr.RefreshToken})
	}
	return nil
}
