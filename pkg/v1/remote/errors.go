// Copyright 2023 Google LLC All Rights Reserved.
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

package remote

import "github.com/pnxs/docker-registry-go/internal/verify"

// ErrContentDigestMismatch is returned (wrapped) from a blob or
// manifest fetch whose body does not hash to the digest it was
// fetched by. Callers that want to distinguish this from a plain
// transport failure should check for it with errors.Is.
var ErrContentDigestMismatch = verify.ErrDigestMismatch
