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
	"os"
	"path/filepath"

	"github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/configfile"
)

// DefaultAuthKey is the key used for registry credentials that apply to
// every registry, e.g. docker.io in the classic docker config.json.
const DefaultAuthKey = "https://index.docker.io/v1/"

// Resource represents a registry or repository that can be authenticated against.
type Resource interface {
	// String returns the full string representation of the target, e.g.
	// gcr.io/my-project or just gcr.io.
	String() string

	// RegistryStr returns just the registry portion of the target, e.g. for
	// gcr.io/my-project, this should just return gcr.io. This is needed to
	// pull out an appropriate hostname.
	RegistryStr() string
}

// Keychain is an interface for resolving an image reference to a credential.
type Keychain interface {
	// Resolve looks up the most appropriate credential for the specified target.
	Resolve(Resource) (Authenticator, error)
}

// defaultKeychain implements Keychain with the semantics of the standard
// Docker credential keychain, including Podman's auth.json fallback.
type defaultKeychain struct{}

// DefaultKeychain is an instance of the default keychain.
var DefaultKeychain Keychain = &defaultKeychain{}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// podmanAuthConfig loads $XDG_RUNTIME_DIR/containers/auth.json when
// present, the location Podman writes `podman login` credentials to.
func podmanAuthConfig() (*configfile.ConfigFile, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, nil
	}
	p := filepath.Join(runtimeDir, "containers", "auth.json")
	if !fileExists(p) {
		return nil, nil
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return config.LoadFromReader(f)
}

// Resolve implements Keychain. Docker's own config.Load already
// consults $DOCKER_CONFIG and falls back to $HOME/.docker/config.json,
// so Podman's auth.json is only consulted when neither produced a
// config file for this target, and is shadowed the moment a Docker
// config file appears.
func (dk *defaultKeychain) Resolve(target Resource) (Authenticator, error) {
	cf, err := config.Load("")
	if err != nil {
		return nil, err
	}

	if !cf.ContainsAuth() {
		if pcf, err := podmanAuthConfig(); err != nil {
			return nil, err
		} else if pcf != nil {
			cf = pcf
		}
	}

	return getAuthenticator(cf, target)
}

func getAuthenticator(cf *configfile.ConfigFile, target Resource) (Authenticator, error) {
	cfg, err := cf.GetAuthConfig(target.RegistryStr())
	if err != nil {
		return nil, err
	}

	if cfg.Username == "" && cfg.Auth == "" && cfg.IdentityToken == "" && cfg.RegistryToken == "" {
		return Anonymous, nil
	}
	return &Basic{Username: cfg.Username, Password: cfg.Password}, nil
}
