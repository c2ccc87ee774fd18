// Copyright 2021 Google LLC All Rights Reserved.
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

package tarball

import (
	"io"

	v1 "github.com/pnxs/docker-registry-go/pkg/v1"
)

// WithProgress reports progress of the tarball write to the given channel,
// closing it when the write completes or fails. Callers must drain the
// channel or the write will block.
func WithProgress(updates chan<- v1.Update) Option {
	return func(o *options) error {
		o.updates = updates
		return nil
	}
}

// progressWriter wraps an io.Writer, reporting every write as an Update on
// updates, and emitting a final Update (with io.EOF, on success) when closed.
type progressWriter struct {
	io.Writer

	updates  chan<- v1.Update
	total    int64
	complete int64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	if n > 0 {
		pw.complete += int64(n)
		pw.sendUpdate(nil)
	}
	if err != nil {
		pw.sendUpdate(err)
	}
	return n, err
}

func (pw *progressWriter) sendUpdate(err error) {
	if pw.updates == nil {
		return
	}
	pw.updates <- v1.Update{
		Complete: pw.complete,
		Total:    pw.total,
		Error:    err,
	}
}

func (pw *progressWriter) Close(err error) {
	if pw.updates == nil {
		return
	}
	if err == nil {
		err = io.EOF
	}
	pw.sendUpdate(err)
	close(pw.updates)
}

// totalSize sums the size of everything MultiRefWrite will write: each
// image's config, layers, and the top-level manifest.json.
func totalSize(imageToTags map[v1.Image][]string) (int64, error) {
	var total int64
	for img := range imageToTags {
		cfgBlob, err := img.RawConfigFile()
		if err != nil {
			return 0, err
		}
		total += int64(len(cfgBlob))

		layers, err := img.Layers()
		if err != nil {
			return 0, err
		}
		for _, l := range layers {
			size, err := l.Size()
			if err != nil {
				return 0, err
			}
			total += size
		}
	}
	return total, nil
}
