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

import "regexp"

// DefaultTag is used when a reference gives neither a tag nor a digest.
const DefaultTag = "latest"

// tagRegexp is the grammar enforced under StrictValidation.
var tagRegexp = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// Tag is a Repository plus a mutable, human-assigned version label.
type Tag struct {
	Repository
	tag string
}

// TagStr returns the tag, e.g. "latest".
func (t Tag) TagStr() string {
	return t.tag
}

// Identifier implements Reference.
func (t Tag) Identifier() string {
	return t.TagStr()
}

// String implements Reference. It returns the fully qualified
// "<registry>/<repository>:<tag>" form; shorthand in the parsed input
// (an omitted registry, "library/" prefix or tag) is not preserved.
func (t Tag) String() string {
	return t.Name() + ":" + t.TagStr()
}

func checkTag(tag string, o options) error {
	if tag == "" {
		return newErrBadName("a tag must be specified")
	}
	if o.strict && !tagRegexp.MatchString(tag) {
		return newErrBadName("tag %q must match %q", tag, tagRegexp.String())
	}
	return nil
}

// NewTag returns a new Tag for the given string, defaulting the tag to
// DefaultTag if the string carries none.
func NewTag(name string, opts ...Strictness) (Tag, error) {
	o := makeOptions(opts...)
	base, tag := splitVersion(name, ':')
	if tag == "" {
		tag = DefaultTag
	}
	if err := checkTag(tag, o); err != nil {
		return Tag{}, err
	}
	repo, err := NewRepository(base, opts...)
	if err != nil {
		return Tag{}, err
	}
	return Tag{Repository: repo, tag: tag}, nil
}

// splitVersion splits "repo<sep>version" on the last occurrence of sep
// that follows the final '/', so that ports (host:port/repo) aren't
// mistaken for a tag delimiter.
func splitVersion(name string, sep byte) (string, string) {
	slash := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			slash = i
			break
		}
	}
	for i := len(name) - 1; i > slash; i-- {
		if name[i] == sep {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}
