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

package transport

import (
	"net/http"
	"strings"
)

// Challenge is a single parsed WWW-Authenticate challenge.
type Challenge struct {
	Scheme     string
	Parameters map[string]string
}

// parseAuthHeader parses zero or more WWW-Authenticate header values
// into Challenges, per RFC 7235 §4.1's challenge grammar.
func parseAuthHeader(header http.Header) []Challenge {
	var challenges []Challenge
	for _, h := range header[http.CanonicalHeaderKey("WWW-Authenticate")] {
		scheme, params := parseChallenge(h)
		if scheme == "" {
			continue
		}
		challenges = append(challenges, Challenge{Scheme: scheme, Parameters: params})
	}
	return challenges
}

func parseChallenge(h string) (scheme string, params map[string]string) {
	params = map[string]string{}

	h = strings.TrimSpace(h)
	sp := strings.IndexByte(h, ' ')
	if sp < 0 {
		return strings.ToLower(h), params
	}
	scheme = strings.ToLower(h[:sp])
	raw := strings.TrimSpace(h[sp+1:])

	for len(raw) > 0 {
		eq := strings.IndexByte(raw, '=')
		if eq < 0 {
			break
		}
		key := strings.ToLower(strings.TrimSpace(raw[:eq]))
		raw = raw[eq+1:]

		var val string
		if len(raw) > 0 && raw[0] == '"' {
			var b strings.Builder
			i := 1
			for i < len(raw) {
				c := raw[i]
				if c == '\\' && i+1 < len(raw) {
					b.WriteByte(raw[i+1])
					i += 2
					continue
				}
				if c == '"' {
					i++
					break
				}
				b.WriteByte(c)
				i++
			}
			val = b.String()
			raw = raw[i:]
		} else if comma := strings.IndexByte(raw, ','); comma >= 0 {
			val = strings.TrimSpace(raw[:comma])
			raw = raw[comma:]
		} else {
			val = strings.TrimSpace(raw)
			raw = ""
		}

		params[key] = val
		raw = strings.TrimSpace(raw)
		raw = strings.TrimPrefix(raw, ",")
	}

	return scheme, params
}
