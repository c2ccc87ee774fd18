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

// Helper is the interface implemented by in-process credential helpers,
// e.g. github.com/docker/docker-credential-helpers/credentials.Helper,
// without requiring a dependency on that package's exec-based Get.
type Helper interface {
	Get(serverURL string) (string, string, error)
}

type wrapper struct {
	h Helper
}

// NewKeychainFromHelper returns a Keychain that defers to the given
// credential helper, falling back to Anonymous if the helper errors or
// reports no matching credentials.
func NewKeychainFromHelper(h Helper) Keychain {
	return wrapper{h}
}

func (w wrapper) Resolve(r Resource) (Authenticator, error) {
	user, pass, err := w.h.Get(r.RegistryStr())
	if err != nil {
		return Anonymous, nil
	}
	if user == "" && pass == "" {
		return Anonymous, nil
	}
	return &Basic{Username: user, Password: pass}, nil
}
