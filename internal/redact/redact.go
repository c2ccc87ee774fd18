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

// Package redact scrubs sensitive query parameters (bearer token
// exchange responses, signed-URL tokens) out of error messages before
// they reach a log line or CLI output.
package redact

import (
	"context"
	"errors"
	"net/url"
)

// URLErr wraps a *url.Error whose URL has been redacted.
type URLErr struct {
	Err error
}

func (e *URLErr) Error() string {
	return e.Err.Error()
}

func (e *URLErr) Unwrap() error {
	return e.Err
}

// sensitiveParams are query parameter names that may carry tokens or
// signed-URL secrets, and so are redacted rather than logged verbatim.
var sensitiveParams = map[string]bool{
	"access_token": true,
	"token":        true,
	"signature":    true,
}

// URL redacts sensitive query parameters from u and returns its string
// form, for safe inclusion in an error message or log line.
func URL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.RawQuery == "" {
		return u.String()
	}
	redacted := *u
	qs := redacted.Query()
	for k := range qs {
		if sensitiveParams[k] {
			qs.Set(k, "REDACTED")
		}
	}
	redacted.RawQuery = qs.Encode()
	return redacted.String()
}

type redactKey struct{}

type redactValue struct {
	reason string
}

// Context marks ctx so that FromContext reports that request/response
// bodies for this request should be omitted from logs, e.g. because
// they carry a token exchange payload.
func Context(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, redactKey{}, redactValue{reason: reason})
}

// FromContext reports whether ctx was marked via Context, and if so why.
func FromContext(ctx context.Context) (bool, string) {
	v, ok := ctx.Value(redactKey{}).(redactValue)
	if !ok {
		return false, ""
	}
	return true, v.reason
}

// Error redacts the query parameters of any url.Error's URL, to avoid
// accidentally logging tokens or signed URLs embedded in query strings.
func Error(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil && u.RawQuery != "" {
			uerr.URL = URL(u)
			return &URLErr{Err: uerr}
		}
	}
	return err
}
