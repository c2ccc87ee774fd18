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

// Package retry provides a small exponential-backoff retry loop shared
// by the transport package.
package retry

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Backoff is the exponential backoff schedule used by Retry.
type Backoff = wait.Backoff

// Predicate returns true if an error is retryable.
type Predicate func(error) bool

type temporary interface {
	Temporary() bool
}

// IsTemporary reports whether err declares itself retryable via a
// Temporary() bool method.
func IsTemporary(err error) bool {
	te, ok := err.(temporary)
	return ok && te.Temporary()
}

type neverKey struct{}

// Never marks ctx so that Retry performs a single attempt regardless of
// the configured Predicate or Backoff, useful for callers that already
// sit inside an outer retry loop.
func Never(ctx context.Context) context.Context {
	return context.WithValue(ctx, neverKey{}, true)
}

func neverRetry(ctx context.Context) bool {
	v, _ := ctx.Value(neverKey{}).(bool)
	return v
}

// Retry calls f until it returns a nil error, p decides the error is
// not retryable, or backoff's step budget is exhausted.
func Retry(f func() error, p Predicate, backoff Backoff) error {
	return RetryWithContext(context.Background(), f, p, backoff)
}

// RetryWithContext is like Retry, but also stops as soon as ctx is
// cancelled or was produced by Never.
func RetryWithContext(ctx context.Context, f func() error, p Predicate, backoff Backoff) error {
	steps := backoff.Steps
	if steps < 1 {
		steps = 1
	}
	never := neverRetry(ctx)

	var err error
	for i := 0; i < steps; i++ {
		err = f()
		if err == nil {
			return nil
		}
		if never || !p(err) {
			return err
		}
		if i == steps-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff.Step()):
		}
	}
	return err
}
