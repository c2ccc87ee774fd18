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

package name

import (
	"fmt"
	"strings"
)

// Repository is a named collection of manifests and blobs within a
// Registry, e.g. "library/alpine" on "index.docker.io".
type Repository struct {
	Registry
	repository string
}

// RepositoryStr returns the repository component of the reference, e.g.
// "library/alpine".
func (r Repository) RepositoryStr() string {
	return r.repository
}

// Name combines RegistryStr and RepositoryStr into a single string, used
// as a key by Keychain implementations and for display.
func (r Repository) Name() string {
	return r.Registry.String() + "/" + r.RepositoryStr()
}

func (r Repository) String() string {
	return r.Name()
}

// Scope returns a scope string usable in an RFC 6750 bearer token
// request, e.g. "repository:library/alpine:pull".
func (r Repository) Scope(action string) string {
	return fmt.Sprintf("repository:%s:%s", r.RepositoryStr(), action)
}

func checkRepository(repository string) error {
	if repository == "" {
		return newErrBadName("a repository name must be specified")
	}
	if strings.Contains(repository, "//") {
		return newErrBadName("repository can't contain // (double slash): %q", repository)
	}
	return nil
}

// NewRepository returns a new Repository, normalizing bare names on the
// default registry with the "library/" namespace, matching Docker Hub's
// official-image convention.
func NewRepository(name string, opts ...Strictness) (Repository, error) {
	if name == "" {
		return Repository{}, newErrBadName("a repository name must be specified")
	}

	reg, repo, found := strings.Cut(name, "/")
	var registry Registry
	var repository string

	if found && looksLikeHost(reg) {
		r, err := NewRegistry(reg, opts...)
		if err != nil {
			return Repository{}, err
		}
		if repo == "" {
			return Repository{}, newErrBadName("a repository name must be specified: %q", name)
		}
		registry = r
		repository = repo
	} else {
		r, err := NewRegistry("", opts...)
		if err != nil {
			return Repository{}, err
		}
		registry = r
		repository = name
		if registry.RegistryStr() == DefaultRegistry && !strings.Contains(repository, "/") {
			repository = "library/" + repository
		}
	}

	if err := checkRepository(repository); err != nil {
		return Repository{}, err
	}

	return Repository{Registry: registry, repository: repository}, nil
}
