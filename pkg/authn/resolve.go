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

package authn

import "context"

// ContextResolver is implemented by a Keychain whose Resolve may need to
// make a network call (e.g. to exchange a cloud workload identity for a
// registry credential) and therefore wants to honor ctx cancellation.
type ContextResolver interface {
	ResolveContext(ctx context.Context, target Resource) (Authenticator, error)
}

// Resolve returns the Authenticator credentials for target from keys,
// preferring ResolveContext when keys supports it.
func Resolve(ctx context.Context, keys Keychain, target Resource) (Authenticator, error) {
	if cr, ok := keys.(ContextResolver); ok {
		return cr.ResolveContext(ctx, target)
	}
	return keys.Resolve(target)
}
