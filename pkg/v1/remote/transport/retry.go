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

package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pnxs/docker-registry-go/internal/retry"
)

// Backoff is the exponential backoff schedule used by the retry
// transport and the resumable download transport.
type Backoff = retry.Backoff

var defaultBackoff = Backoff{
	Duration: 1.0 * time.Second,
	Factor:   3.0,
	Jitter:   0.1,
	Steps:    5,
}

var defaultStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// retryTransport retries requests that fail with a retryable error, or
// whose response status code is one of statusCodes.
type retryTransport struct {
	inner       http.RoundTripper
	backoff     Backoff
	predicate   retry.Predicate
	statusCodes []int
}

// RetryOption configures a retryTransport constructed by NewRetry.
type RetryOption func(*retryTransport)

// WithRetryBackoff overrides the retry schedule, replacing the default
// of 5 steps starting at one second.
func WithRetryBackoff(backoff Backoff) RetryOption {
	return func(t *retryTransport) {
		t.backoff = backoff
	}
}

// WithRetryPredicate overrides which errors are treated as retryable,
// replacing the default of retry.IsTemporary.
func WithRetryPredicate(p retry.Predicate) RetryOption {
	return func(t *retryTransport) {
		t.predicate = p
	}
}

// WithRetryStatusCodes overrides which response status codes trigger a
// retry, replacing the default set of 408, 500, 502, 503 and 504.
func WithRetryStatusCodes(codes ...int) RetryOption {
	return func(t *retryTransport) {
		t.statusCodes = codes
	}
}

// NewRetry wraps inner in a transport that retries failed requests
// according to opts.
func NewRetry(inner http.RoundTripper, opts ...RetryOption) http.RoundTripper {
	t := &retryTransport{
		inner:       inner,
		backoff:     defaultBackoff,
		predicate:   retry.IsTemporary,
		statusCodes: defaultStatusCodes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// retryableStatusError signals that RoundTrip produced a response (no
// transport error) whose status code should still be retried.
type retryableStatusError struct {
	code int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable status code %d", e.code)
}

// RoundTrip implements http.RoundTripper.
func (t *retryTransport) RoundTrip(in *http.Request) (*http.Response, error) {
	predicate := func(err error) bool {
		if _, ok := err.(*retryableStatusError); ok {
			return true
		}
		return t.predicate(err)
	}

	var resp *http.Response
	err := retry.RetryWithContext(in.Context(), func() error {
		r, err := t.inner.RoundTrip(in)
		if err != nil {
			resp = nil
			return err
		}
		resp = r
		for _, code := range t.statusCodes {
			if r.StatusCode == code {
				return &retryableStatusError{code: code}
			}
		}
		return nil
	}, predicate, t.backoff)

	if err != nil {
		if _, ok := err.(*retryableStatusError); ok {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}
