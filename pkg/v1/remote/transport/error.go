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

	"github.com/pnxs/docker-registry-go/internal/apierror"
)

// ErrorCode is the set of registry-standard API error codes, per the
// OCI distribution spec's errcode registry.
type ErrorCode = apierror.ErrorCode

const (
	BlobUnknownErrorCode         = apierror.BlobUnknownErrorCode
	BlobUploadInvalidErrorCode   = apierror.BlobUploadInvalidErrorCode
	BlobUploadUnknownErrorCode   = apierror.BlobUploadUnknownErrorCode
	DigestInvalidErrorCode       = apierror.DigestInvalidErrorCode
	ManifestBlobUnknownErrorCode = apierror.ManifestBlobUnknownErrorCode
	ManifestInvalidErrorCode     = apierror.ManifestInvalidErrorCode
	ManifestUnknownErrorCode     = apierror.ManifestUnknownErrorCode
	ManifestUnverifiedErrorCode  = apierror.ManifestUnverifiedErrorCode
	NameInvalidErrorCode         = apierror.NameInvalidErrorCode
	NameUnknownErrorCode         = apierror.NameUnknownErrorCode
	SizeInvalidErrorCode         = apierror.SizeInvalidErrorCode
	TagInvalidErrorCode          = apierror.TagInvalidErrorCode
	UnauthorizedErrorCode        = apierror.UnauthorizedErrorCode
	DeniedErrorCode              = apierror.DeniedErrorCode
	UnsupportedErrorCode         = apierror.UnsupportedErrorCode
	TooManyRequestsErrorCode     = apierror.TooManyRequestsErrorCode
)

// Diagnostic is a single error, per the distribution spec's error
// response body shape: {"errors": [{"code","message","detail"}]}.
type Diagnostic = apierror.Diagnostic

// Error implements error by wrapping the structured registry error
// response, falling back to a generic message for non-conforming
// bodies. A transport error always carries a status code and, if
// present, structured diagnostics. Its parsing lives in
// internal/apierror, shared with anything else in this module that
// needs to recognize a registry's structured error body.
type Error = apierror.Error

// CheckError returns a structured error if the response's status code
// is not one of the codes provided, and nil otherwise.
func CheckError(resp *http.Response, codes ...int) error {
	return apierror.CheckError(resp, codes...)
}
