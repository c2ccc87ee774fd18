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

package authn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Authenticator is used to authenticate against a registry, whether
// anonymously, via HTTP Basic, or via a bearer token.
type Authenticator interface {
	// Authorization returns the value to use in an http.Request's
	// Authorization header, or an error if it could not be determined.
	Authorization() (*AuthConfig, error)
}

// AuthConfig contains authorization information, mirroring
// docker's config.json auths entries closely enough to round-trip
// through it.
type AuthConfig struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Auth is a base64-encoded "username:password" string, kept in
	// sync with Username/Password by MarshalJSON/UnmarshalJSON.
	Auth string `json:"auth,omitempty"`

	// IdentityToken is used to authenticate the user and get an access
	// token for the registry.
	IdentityToken string `json:"identitytoken,omitempty"`

	// RegistryToken is a bearer token to be sent to a registry.
	RegistryToken string `json:"registrytoken,omitempty"`
}

// MarshalJSON implements json.Marshaler, recomputing Auth from
// Username/Password rather than trusting a caller-supplied value.
func (a AuthConfig) MarshalJSON() ([]byte, error) {
	type Alias AuthConfig
	a.Auth = base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	return json.Marshal((Alias)(a))
}

// UnmarshalJSON implements json.Unmarshaler. When Auth is set it takes
// precedence over (and populates) Username/Password.
func (a *AuthConfig) UnmarshalJSON(data []byte) error {
	type Alias AuthConfig
	aux := &struct{ *Alias }{Alias: (*Alias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if a.Auth == "" {
		if a.Username != "" || a.Password != "" {
			a.Auth = base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
		}
		return nil
	}

	decoded, err := base64.StdEncoding.DecodeString(a.Auth)
	if err != nil {
		return fmt.Errorf("unable to decode auth field: %w", err)
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("unable to decode auth field: must be formatted as base64(username:password)")
	}
	a.Username, a.Password = parts[0], parts[1]
	return nil
}

// Basic implements Authenticator for basic authentication.
type Basic struct {
	Username string
	Password string
}

// Authorization implements Authenticator.
func (b *Basic) Authorization() (*AuthConfig, error) {
	return &AuthConfig{
		Username: b.Username,
		Password: b.Password,
	}, nil
}

// Bearer implements Authenticator for bearer token authentication, e.g.
// obtained from a prior token exchange.
type Bearer struct {
	Token string `json:"token"`
}

// Authorization implements Authenticator.
func (b *Bearer) Authorization() (*AuthConfig, error) {
	return &AuthConfig{
		RegistryToken: b.Token,
	}, nil
}

// authConfigAuthenticator adapts an already-populated AuthConfig into an
// Authenticator, e.g. for credentials obtained from a prior token
// exchange rather than a Keychain lookup.
type authConfigAuthenticator struct {
	config AuthConfig
}

// Authorization implements Authenticator.
func (a authConfigAuthenticator) Authorization() (*AuthConfig, error) {
	return &a.config, nil
}

// FromConfig returns an Authenticator that always returns cfg.
func FromConfig(cfg AuthConfig) Authenticator {
	return authConfigAuthenticator{config: cfg}
}

// anonymous implements Authenticator for registries that do not require
// authentication.
type anonymous struct{}

func (anonymous) Authorization() (*AuthConfig, error) {
	return &AuthConfig{}, nil
}

// Anonymous is the Authenticator that presents no credentials at all.
var Anonymous Authenticator = anonymous{}
