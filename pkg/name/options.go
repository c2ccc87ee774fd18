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

// Option is a functional option for controlling reference parsing and
// construction, e.g. validation strictness or the insecure transport.
type Option func(*options)

// Strictness is kept as an alias of Option so existing call sites that
// named the weak/strict toggle explicitly keep compiling.
type Strictness = Option

type options struct {
	strict   bool
	insecure bool
}

// StrictValidation requires that tags conform to
// [A-Za-z0-9_.-]{1,128} and that any supplied host look plausible.
var StrictValidation Option = func(o *options) { o.strict = true }

// WeakValidation accepts any non-empty tag or digest string, matching
// the leniency of most registry clients in the wild.
var WeakValidation Option = func(o *options) { o.strict = false }

// Insecure marks the resulting Registry as speaking plain HTTP instead
// of HTTPS.
var Insecure Option = func(o *options) { o.insecure = true }

func makeOptions(opts ...Option) options {
	o := options{strict: false}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
