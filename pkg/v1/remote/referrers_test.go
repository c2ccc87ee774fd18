// Copyright 2022 Google LLC All Rights Reserved.
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

package remote_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pnxs/docker-registry-go/pkg/name"
	"github.com/pnxs/docker-registry-go/pkg/registry"
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/remote"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// pushManifest pushes a raw manifest to the fake registry under ref,
// bypassing any client-side push machinery.
func pushManifest(t *testing.T, ref name.Reference, mt types.MediaType, raw []byte) {
	t.Helper()
	repo := ref.Context()
	u := fmt.Sprintf("http://%s/v2/%s/manifests/%s", repo.RegistryStr(), repo.RepositoryStr(), ref.Identifier())
	req, err := http.NewRequest(http.MethodPut, u, bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", string(mt))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		t.Fatalf("pushing manifest %s: got status %d", ref, resp.StatusCode)
	}
}

// pushEmptyConfig pushes a minimal config blob "{}" to repo and returns its descriptor.
func pushEmptyConfig(t *testing.T, repo name.Repository) v1.Descriptor {
	t.Helper()
	content := []byte("{}")
	h, _, err := v1.SHA256(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	u := fmt.Sprintf("http://%s/v2/%s/blobs/uploads/?digest=%s", repo.RegistryStr(), repo.RepositoryStr(), h.String())
	resp, err := http.Post(u, "application/octet-stream", bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		t.Fatalf("pushing config blob: got status %d", resp.StatusCode)
	}
	return v1.Descriptor{
		MediaType: types.DockerConfigJSON,
		Digest:    h,
		Size:      int64(len(content)),
	}
}

// pushFixtureImage pushes a synthetic, layerless image manifest (with the
// given subject, if non-nil) to ref and returns its descriptor.
func pushFixtureImage(t *testing.T, ref name.Reference, subject *v1.Descriptor) v1.Descriptor {
	t.Helper()
	config := pushEmptyConfig(t, ref.Context())
	m := v1.Manifest{
		SchemaVersion: 2,
		MediaType:     types.DockerManifestSchema2,
		Config:        config,
		Layers:        []v1.Descriptor{},
		Subject:       subject,
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	pushManifest(t, ref, m.MediaType, raw)

	h, size, err := v1.SHA256(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	return v1.Descriptor{
		Digest:    h,
		Size:      size,
		MediaType: m.MediaType,
	}
}

func TestReferrers_FallbackTag(t *testing.T) {
	// Set up a fake registry that doesn't support the Referrers API.
	s := httptest.NewServer(registry.New())
	defer s.Close()
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatal(err)
	}

	// Push an image we'll attach things to.
	rootRef, err := name.ParseReference(fmt.Sprintf("%s/repo:root", u.Host))
	if err != nil {
		t.Fatal(err)
	}
	rootDesc := pushFixtureImage(t, rootRef, nil)
	t.Logf("root image is %s", rootDesc.Digest)

	// Push an image that refers to the root image as its subject.
	leafRef, err := name.ParseReference(fmt.Sprintf("%s/repo:leaf", u.Host))
	if err != nil {
		t.Fatal(err)
	}
	leafDesc := pushFixtureImage(t, leafRef, &rootDesc)
	t.Logf("leaf image is %s", leafDesc.Digest)

	// Get the referrers of the root image, by digest.
	rootRefDigest := rootRef.Context().Digest(rootDesc.Digest.String())
	referrers, err := remote.Referrers(rootRefDigest)
	if err != nil {
		t.Fatal(err)
	}
	referrersManifest, err := referrers.IndexManifest()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]v1.Descriptor{leafDesc}, referrersManifest.Manifests); d != "" {
		t.Fatalf("referrers diff (-want,+got): %s", d)
	}

	// Get the referrers by querying the root image's fallback tag directly.
	tag, err := name.ParseReference(fmt.Sprintf("%s/repo:sha256-%s", u.Host, rootDesc.Digest.Hex))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := remote.Index(tag)
	if err != nil {
		t.Fatal(err)
	}
	mf, err := idx.IndexManifest()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(referrersManifest.Manifests, mf.Manifests); d != "" {
		t.Fatalf("fallback tag diff (-want,+got): %s", d)
	}

	// Push the leaf manifest again, this time under a different tag. This
	// shouldn't add another item to the root image's referrers, because
	// it's the same digest.
	leaf2Ref, err := name.ParseReference(fmt.Sprintf("%s/repo:leaf2", u.Host))
	if err != nil {
		t.Fatal(err)
	}
	config := pushEmptyConfig(t, leaf2Ref.Context())
	m := v1.Manifest{
		SchemaVersion: 2,
		MediaType:     types.DockerManifestSchema2,
		Config:        config,
		Layers:        []v1.Descriptor{},
		Subject:       &rootDesc,
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	pushManifest(t, leaf2Ref, m.MediaType, raw)

	// Get the referrers of the root image again, which should only have one entry.
	rootRefDigest = rootRef.Context().Digest(rootDesc.Digest.String())
	referrers, err = remote.Referrers(rootRefDigest)
	if err != nil {
		t.Fatal(err)
	}
	referrersManifest, err = referrers.IndexManifest()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]v1.Descriptor{leafDesc}, referrersManifest.Manifests); d != "" {
		t.Fatalf("referrers diff after second push (-want,+got): %s", d)
	}
}
