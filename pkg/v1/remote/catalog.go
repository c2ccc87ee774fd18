// Copyright 2019 Google LLC All Rights Reserved.
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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pnxs/docker-registry-go/pkg/name"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote/transport"
)

// catalog is the JSON body returned by the _catalog endpoint.
type catalog struct {
	Repos []string `json:"repositories"`
}

// CatalogPage calls /v2/_catalog, returning at most n repository names
// starting after last (an empty last starts from the beginning).
func CatalogPage(reg name.Registry, last string, n int, options ...Option) ([]string, error) {
	o, err := makeOptions(reg, options...)
	if err != nil {
		return nil, err
	}
	scopes := []string{reg.Scope(transport.PullScope)}
	tr, err := transport.NewWithContext(o.context, reg, o.auth, o.transport, scopes)
	if err != nil {
		return nil, err
	}

	uri := url.URL{
		Scheme:   reg.Scheme(),
		Host:     reg.RegistryStr(),
		Path:     "/v2/_catalog",
		RawQuery: fmt.Sprintf("last=%s&n=%d", url.QueryEscape(last), n),
	}

	client := http.Client{Transport: tr}
	req, err := http.NewRequestWithContext(o.context, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var parsed catalog
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	return parsed.Repos, nil
}

// CatalogIterator is a lazy, page-at-a-time cursor over a registry's
// repository catalog. Next fetches another page from the registry only
// once the previously-fetched page has been drained, so a caller that
// stops iterating early never pays for pages it didn't ask for.
type CatalogIterator struct {
	client *http.Client
	uri    *url.URL
	buf    []string
	done   bool
}

// NewCatalogIterator returns a CatalogIterator over reg's full repository
// catalog, following Link-header pagination as Next is called.
func NewCatalogIterator(ctx context.Context, reg name.Registry, options ...Option) (*CatalogIterator, error) {
	o, err := makeOptions(reg, options...)
	if err != nil {
		return nil, err
	}
	o.context = ctx

	scopes := []string{reg.Scope(transport.PullScope)}
	tr, err := transport.NewWithContext(ctx, reg, o.auth, o.transport, scopes)
	if err != nil {
		return nil, err
	}

	return &CatalogIterator{
		client: &http.Client{Transport: tr},
		uri: &url.URL{
			Scheme: reg.Scheme(),
			Host:   reg.RegistryStr(),
			Path:   "/v2/_catalog",
		},
	}, nil
}

// Next returns the next repository name in the catalog, fetching another
// page from the registry if the current one is exhausted. It returns
// ("", false, nil) once the catalog has been fully enumerated.
func (it *CatalogIterator) Next(ctx context.Context) (string, bool, error) {
	for len(it.buf) == 0 {
		if it.done {
			return "", false, nil
		}
		if err := it.fetchPage(ctx); err != nil {
			return "", false, err
		}
	}
	repo := it.buf[0]
	it.buf = it.buf[1:]
	return repo, true, nil
}

func (it *CatalogIterator) fetchPage(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, it.uri.String(), nil)
	if err != nil {
		return err
	}

	resp, err := it.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		return err
	}

	var parsed catalog
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	it.buf = parsed.Repos

	next, err := getNextPageURL(resp)
	if err != nil {
		return err
	}
	if next == nil {
		it.done = true
	} else {
		it.uri = next
	}
	return nil
}

// Catalog calls /v2/_catalog repeatedly, following Link-header
// pagination via a CatalogIterator, and returns the full list of
// repository names hosted by reg. Callers that don't need the whole
// collection materialized at once should use NewCatalogIterator instead,
// which never holds more than one page in memory.
func Catalog(ctx context.Context, reg name.Registry, options ...Option) ([]string, error) {
	it, err := NewCatalogIterator(ctx, reg, options...)
	if err != nil {
		return nil, err
	}

	var repoList []string
	for {
		repo, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		repoList = append(repoList, repo)
	}
	return repoList, nil
}
