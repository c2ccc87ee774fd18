package partial

import (
	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
	"github.com/pnxs/docker-registry-go/pkg/v1/types"
)

// Describable is implemented by anything with a digest, a size and a media
// type, the fields a v1.Descriptor is built from.
type Describable interface {
	Digest() (v1.Hash, error)
	Size() (int64, error)
	MediaType() (types.MediaType, error)
}

type Artifact interface {
	Describable
	WithRawManifest
}

type WithMediaType interface {
	MediaType() (types.MediaType, error)
}
