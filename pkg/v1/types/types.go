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

// Package types holds the registry of known OCI/Docker media types.
package types

// MediaType is the registry of known content types exchanged by the
// registry protocol.
type MediaType string

const (
	OCIContentDescriptor MediaType = "application/vnd.oci.descriptor.v1+json"

	OCIImageIndex      MediaType = "application/vnd.oci.image.index.v1+json"
	OCIManifestSchema1 MediaType = "application/vnd.oci.image.manifest.v1+json"
	OCIConfigJSON      MediaType = "application/vnd.oci.image.config.v1+json"

	OCILayer                       MediaType = "application/vnd.oci.image.layer.v1.tar+gzip"
	OCIUncompressedLayer           MediaType = "application/vnd.oci.image.layer.v1.tar"
	OCIRestrictedLayer             MediaType = "application/vnd.oci.image.layer.nondistributable.v1.tar+gzip"
	OCIUncompressedRestrictedLayer MediaType = "application/vnd.oci.image.layer.nondistributable.v1.tar"

	DockerManifestSchema1       MediaType = "application/vnd.docker.distribution.manifest.v1+json"
	DockerManifestSchema1Signed MediaType = "application/vnd.docker.distribution.manifest.v1+prettyjws"
	DockerManifestSchema2       MediaType = "application/vnd.docker.distribution.manifest.v2+json"
	DockerManifestList          MediaType = "application/vnd.docker.distribution.manifest.list.v2+json"

	DockerLayer             MediaType = "application/vnd.docker.image.rootfs.diff.tar.gzip"
	DockerUncompressedLayer MediaType = "application/vnd.docker.image.rootfs.diff.tar"
	DockerForeignLayer      MediaType = "application/vnd.docker.image.rootfs.foreign.diff.tar.gzip"

	DockerConfigJSON   MediaType = "application/vnd.docker.container.image.v1+json"
	DockerPluginConfig MediaType = "application/vnd.docker.plugin.v1+json"

	OCIUncompressedLayerZstd MediaType = "application/vnd.oci.image.layer.v1.tar+zstd"
)

// nonDistributable is the set of layer media types classified as
// "foreign" or "nondistributable" — never fetched from the origin
// registry, only referenced via Descriptor.URLs.
var nonDistributable = map[MediaType]bool{
	OCIRestrictedLayer:             true,
	OCIUncompressedRestrictedLayer: true,
	DockerForeignLayer:             true,
}

// image is the set of media types that identify a single-platform
// image manifest, as opposed to a manifest list/index or a layer/config
// blob.
var image = map[MediaType]bool{
	OCIManifestSchema1:    true,
	DockerManifestSchema2: true,
}

// index is the set of media types that identify a manifest list or
// image index.
var index = map[MediaType]bool{
	OCIImageIndex:      true,
	DockerManifestList: true,
}

// IsDistributable reports whether content of this media type may be
// fetched directly from a registry, as opposed to requiring an
// out-of-band URL.
func (m MediaType) IsDistributable() bool {
	return !nonDistributable[m]
}

// IsImage reports whether this media type identifies a single-platform
// image manifest.
func (m MediaType) IsImage() bool {
	return image[m]
}

// IsIndex reports whether this media type identifies a manifest list
// or image index.
func (m MediaType) IsIndex() bool {
	return index[m]
}

// IsSchema1 reports whether this media type identifies a (signed or
// unsigned) Docker Schema 1 manifest.
func (m MediaType) IsSchema1() bool {
	return m == DockerManifestSchema1 || m == DockerManifestSchema1Signed
}

// IsLayer reports whether this media type identifies a filesystem layer
// blob, compressed or not, distributable or not.
func (m MediaType) IsLayer() bool {
	switch m {
	case OCILayer, OCIUncompressedLayer, OCIRestrictedLayer, OCIUncompressedRestrictedLayer,
		DockerLayer, DockerUncompressedLayer, DockerForeignLayer, OCIUncompressedLayerZstd:
		return true
	default:
		return false
	}
}

// IsConfig reports whether this media type identifies an image config
// blob.
func (m MediaType) IsConfig() bool {
	return m == OCIConfigJSON || m == DockerConfigJSON
}

func (m MediaType) String() string {
	return string(m)
}
